package service

import (
	"context"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/template"
	"github.com/google/uuid"
)

type (
	// Store is the persistence adapter for survey documents.
	Store interface {
		Load(ctx context.Context, id uuid.UUID) (*entity.Survey, error)
		Save(ctx context.Context, survey *entity.Survey) (uuid.UUID, error)
		ListTemplates(ctx context.Context, filter entity.TemplateFilter) ([]*entity.Survey, error)
	}

	Publisher interface {
		Publish(payload any, routingKey string) error
	}

	Casher interface {
		AddToCash(ctx context.Context, key string, payload any) error
		GetCashFor(ctx context.Context, key string) ([]byte, error)
		RemoveFromCash(ctx context.Context, key string) error
	}

	Instantiator interface {
		Instantiate(ctx context.Context, templateID uuid.UUID, ownerID string, o template.Overrides) (*entity.Survey, error)
	}
)
