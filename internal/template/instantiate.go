// Package template turns read-only template documents into new, editable
// surveys and provides the built-in template catalog.
package template

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/google/uuid"
)

type (
	// Loader fetches a stored document by id.
	Loader interface {
		Load(ctx context.Context, id uuid.UUID) (*entity.Survey, error)
	}

	// Overrides optionally replace the title and description carried over
	// from the template.
	Overrides struct {
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
	}

	// Instantiator clones templates into surveys owned by the caller.
	Instantiator struct {
		store Loader
		now   func() time.Time
	}
)

func NewInstantiator(store Loader) *Instantiator {
	return &Instantiator{
		store: store,
		now:   time.Now,
	}
}

// Instantiate produces a new draft owned by ownerID from the template with
// the given id. The result carries a fresh survey id and a fresh id for every
// question, in the template's order, and shares no references with the
// template. The returned survey is not stored.
func (i *Instantiator) Instantiate(ctx context.Context, templateID uuid.UUID, ownerID string, o Overrides) (*entity.Survey, error) {
	src, err := i.store.Load(ctx, templateID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.NewNotFoundError("template", templateID.String())
		}
		return nil, err
	}

	if !src.IsTemplate {
		return nil, entity.NewNotFoundError("template", templateID.String())
	}
	if !src.IsPublic && !src.Owned(ownerID) {
		return nil, &entity.PermissionError{
			Action: "instantiate template " + templateID.String(),
			Reason: "template is private",
		}
	}

	return i.clone(src, ownerID, o), nil
}

func (i *Instantiator) clone(src *entity.Survey, ownerID string, o Overrides) *entity.Survey {
	out := src.Clone()

	out.ID = newID()
	out.OwnerID = ownerID
	out.Status = entity.StatusDraft
	out.IsTemplate = false
	out.IsPublic = false
	out.Category = ""
	out.Industry = ""

	now := i.now().UTC()
	out.CreatedAt = now
	out.UpdatedAt = now

	if title := strings.TrimSpace(o.Title); title != "" {
		out.Title = title
	}
	if o.Description != "" {
		out.Description = o.Description
	}

	for j := range out.Questions {
		out.Questions[j].ID = newID().String()
	}

	out.Normalize()
	return out
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
