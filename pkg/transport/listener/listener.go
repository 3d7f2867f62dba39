package listener

import (
	"context"
	"fmt"

	"github.com/Koyo-os/survey-service/internal/builder"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/template"
	"github.com/Koyo-os/survey-service/pkg/codec"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	// Handler is the part of the survey service driven by bus requests.
	Handler interface {
		SaveDocument(ctx context.Context, ownerID string, doc *entity.Survey) (uuid.UUID, error)
		Apply(ctx context.Context, id uuid.UUID, ownerID string, ops []builder.Operation) (*entity.Survey, []builder.Result, error)
		CloneTemplate(ctx context.Context, templateID uuid.UUID, ownerID string, o template.Overrides) (uuid.UUID, error)
	}

	SaveRequest struct {
		OwnerID string         `json:"ownerId"`
		Survey  *entity.Survey `json:"survey"`
	}

	ApplyRequest struct {
		SurveyID   uuid.UUID           `json:"surveyId"`
		OwnerID    string              `json:"ownerId"`
		Operations []builder.Operation `json:"operations"`
	}

	InstantiateRequest struct {
		TemplateID  uuid.UUID `json:"templateId"`
		OwnerID     string    `json:"ownerId"`
		Title       string    `json:"title,omitempty"`
		Description string    `json:"description,omitempty"`
	}
)

type Listener struct {
	inputChan chan entity.Event
	logger    *logger.Logger
	service   Handler
	cfg       *config.Config
}

func Init(
	inputChan chan entity.Event,
	logger *logger.Logger,
	cfg *config.Config,
	service Handler,
) *Listener {
	return &Listener{
		inputChan: inputChan,
		service:   service,
		logger:    logger,
		cfg:       cfg,
	}
}

// Listen dispatches incoming requests until ctx is done or the input
// channel is closed.
func (list *Listener) Listen(ctx context.Context) {
	for {
		select {
		case event, ok := <-list.inputChan:
			if !ok {
				list.logger.Info("input channel closed, stopping listener")
				return
			}

			if err := list.handle(ctx, event); err != nil {
				list.logger.Error("error handle event",
					zap.String("event_type", event.Type),
					zap.String("event_id", event.ID),
					zap.Bool("retryable", entity.IsRetryable(err)),
					zap.Error(err))
			}

		case <-ctx.Done():
			list.logger.Info("stopping listeners...")
			return
		}
	}
}

func (list *Listener) handle(ctx context.Context, event entity.Event) error {
	switch event.Type {
	case list.cfg.Reqs.SaveRequestType:
		req := new(SaveRequest)
		if err := codec.Unmarshal(event.Payload, req); err != nil {
			return fmt.Errorf("unmarshal save request: %w", err)
		}
		if req.Survey == nil {
			return entity.NewValidationError("survey", "is required")
		}

		id, err := list.service.SaveDocument(ctx, req.OwnerID, req.Survey)
		if err != nil {
			return err
		}
		list.logger.Info("survey saved", zap.String("survey_id", id.String()))

	case list.cfg.Reqs.ApplyRequestType:
		req := new(ApplyRequest)
		if err := codec.Unmarshal(event.Payload, req); err != nil {
			return fmt.Errorf("unmarshal apply request: %w", err)
		}

		_, results, err := list.service.Apply(ctx, req.SurveyID, req.OwnerID, req.Operations)
		if err != nil {
			return err
		}
		list.logger.Info("operations applied",
			zap.String("survey_id", req.SurveyID.String()),
			zap.Int("operations", len(results)))

	case list.cfg.Reqs.InstantiateRequestType:
		req := new(InstantiateRequest)
		if err := codec.Unmarshal(event.Payload, req); err != nil {
			return fmt.Errorf("unmarshal instantiate request: %w", err)
		}

		id, err := list.service.CloneTemplate(ctx, req.TemplateID, req.OwnerID, template.Overrides{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		list.logger.Info("template instantiated",
			zap.String("template_id", req.TemplateID.String()),
			zap.String("survey_id", id.String()))

	default:
		list.logger.Warn("unknown event type", zap.String("event_type", event.Type))
	}

	return nil
}
