// Package service wires the builder, the stores, the cache and the bus into
// the operations exposed by the transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Koyo-os/survey-service/internal/builder"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/Koyo-os/survey-service/internal/template"
	"github.com/Koyo-os/survey-service/pkg/codec"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/Koyo-os/survey-service/pkg/retrier"
	"github.com/Koyo-os/survey-service/pkg/transport/casher"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	store     Store
	casher    Casher
	publisher Publisher
	templates Instantiator
	registry  *registry.Registry
	logger    *logger.Logger
	retry     retrier.RetrierOpts

	// saves counts invalidations so a Load that overlapped one does not
	// leave the document it read in the cache.
	saves atomic.Uint64
}

func Init(
	store Store,
	casher Casher,
	publisher Publisher,
	templates Instantiator,
	reg *registry.Registry,
	logger *logger.Logger,
	retry retrier.RetrierOpts,
) *Service {
	return &Service{
		store:     store,
		casher:    casher,
		publisher: publisher,
		templates: templates,
		registry:  reg,
		logger:    logger,
		retry:     retry,
	}
}

// Registry returns the question type catalog the service validates with.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Load returns the survey with the given id, from the cache when possible.
func (s *Service) Load(ctx context.Context, id uuid.UUID) (*entity.Survey, error) {
	key := id.String()

	data, err := s.casher.GetCashFor(ctx, key)
	switch {
	case err == nil:
		doc := new(entity.Survey)
		if err := codec.Unmarshal(data, doc); err == nil {
			doc.Normalize()
			return doc, nil
		}
		s.logger.Warn("dropping undecodable cache entry", zap.String("survey_id", key))
		if err := s.casher.RemoveFromCash(ctx, key); err != nil {
			s.logger.Warn("error drop cache entry", zap.String("survey_id", key), zap.Error(err))
		}
	case !errors.Is(err, casher.ErrCacheMiss):
		s.logger.Warn("cache read failed, falling back to store",
			zap.String("survey_id", key),
			zap.Error(err),
		)
	}

	seen := s.saves.Load()

	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit(doc)
	s.refill(ctx, key, doc, seen)

	return doc, nil
}

// refill caches doc unless a save was invalidated since seen. A save that
// lands between the check and the write is caught by the second check.
func (s *Service) refill(ctx context.Context, key string, doc *entity.Survey, seen uint64) {
	if s.saves.Load() != seen {
		s.logger.Debug("skipping cache refill after concurrent save", zap.String("survey_id", key))
		return
	}

	if err := s.casher.AddToCash(ctx, key, doc); err != nil {
		s.logger.Warn("error cache survey",
			zap.String("survey_id", key),
			zap.Error(err),
		)
		return
	}

	if s.saves.Load() != seen {
		if err := s.casher.RemoveFromCash(ctx, key); err != nil {
			s.logger.Warn("error drop cache entry", zap.String("survey_id", key), zap.Error(err))
		}
	}
}

// Open loads a survey into a fresh editing engine.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*builder.Engine, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return builder.New(doc, s.registry), nil
}

// Save persists the document of e. On failure the engine keeps its dirty
// state and the error is returned unchanged, so persistence errors stay
// retryable by the caller.
func (s *Service) Save(ctx context.Context, e *builder.Engine) (uuid.UUID, error) {
	doc := e.Survey()

	id, err := s.store.Save(ctx, doc)
	if err != nil {
		s.logger.Error("error save survey",
			zap.String("survey_id", doc.ID.String()),
			zap.Bool("retryable", entity.IsRetryable(err)),
			zap.Error(err),
		)
		return uuid.Nil, err
	}

	e.MarkSaved(id)
	doc.ID = id

	s.afterSave(ctx, id, entity.EventSurveySaved, entity.SavedPayload{
		SurveyID:      id.String(),
		OwnerID:       doc.OwnerID,
		Status:        doc.Status,
		QuestionCount: len(doc.Questions),
	})

	return id, nil
}

// SaveDocument stores a complete document received from a transport on
// behalf of ownerID. Questions of a known type must carry valid fields.
// Questions of an unknown type are kept as they are.
func (s *Service) SaveDocument(ctx context.Context, ownerID string, doc *entity.Survey) (uuid.UUID, error) {
	doc = doc.Clone()
	doc.Normalize()

	if !doc.IsNew() {
		current, err := s.store.Load(ctx, doc.ID)
		switch {
		case err == nil:
			if err := checkWritable(current, ownerID); err != nil {
				return uuid.Nil, err
			}
			doc.OwnerID = current.OwnerID
			doc.CreatedAt = current.CreatedAt
		case errors.Is(err, entity.ErrNotFound):
		default:
			return uuid.Nil, err
		}
	}

	if doc.OwnerID == "" {
		doc.OwnerID = ownerID
	}
	doc.IsTemplate = false

	for _, issue := range s.registry.Audit(doc) {
		if s.registry.Has(issue.Type) {
			return uuid.Nil, entity.NewValidationError("questions."+issue.QuestionID, "%s", issue.Problem)
		}
	}

	return s.Save(ctx, builder.New(doc, s.registry))
}

// Apply runs a batch of builder operations against a stored survey and
// saves the result. Nothing is stored when any operation fails.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, ownerID string, ops []builder.Operation) (*entity.Survey, []builder.Result, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkWritable(doc, ownerID); err != nil {
		return nil, nil, err
	}

	e := builder.New(doc, s.registry)

	results, err := e.Apply(ops)
	if err != nil {
		return nil, nil, err
	}

	if e.Dirty() {
		if _, err := s.Save(ctx, e); err != nil {
			return nil, nil, err
		}
	}

	return e.Survey(), results, nil
}

// CloneTemplate instantiates a template for ownerID, stores the new survey
// and returns its id.
func (s *Service) CloneTemplate(ctx context.Context, templateID uuid.UUID, ownerID string, o template.Overrides) (uuid.UUID, error) {
	doc, err := s.templates.Instantiate(ctx, templateID, ownerID, o)
	if err != nil {
		s.logger.Warn("error instantiate template",
			zap.String("template_id", templateID.String()),
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return uuid.Nil, err
	}

	id, err := s.store.Save(ctx, doc)
	if err != nil {
		s.logger.Error("error save instantiated survey",
			zap.String("template_id", templateID.String()),
			zap.Error(err),
		)
		return uuid.Nil, err
	}

	s.afterSave(ctx, id, entity.EventSurveyInstantiated, entity.InstantiatedPayload{
		SurveyID:   id.String(),
		TemplateID: templateID.String(),
		OwnerID:    ownerID,
	})

	return id, nil
}

// ListTemplates returns the templates visible under filter.
func (s *Service) ListTemplates(ctx context.Context, filter entity.TemplateFilter) ([]*entity.Survey, error) {
	return s.store.ListTemplates(ctx, filter)
}

// afterSave drops the stale cache entry and announces the change. Both run
// concurrently; their failures are logged because the save itself succeeded.
func (s *Service) afterSave(ctx context.Context, id uuid.UUID, event string, payload any) {
	s.saves.Add(1)

	var g errgroup.Group

	g.Go(func() error {
		err := retrier.Do(uint8(s.retry.Count), s.retry.Interval, func() error {
			return s.casher.RemoveFromCash(ctx, id.String())
		})
		if err != nil {
			return fmt.Errorf("invalidate cache: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := s.publisher.Publish(payload, event); err != nil {
			return fmt.Errorf("publish %s: %w", event, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("post-save step failed",
			zap.String("survey_id", id.String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(doc *entity.Survey) {
	for _, issue := range s.registry.Audit(doc) {
		s.logger.Warn("survey failed integrity check",
			zap.String("survey_id", doc.ID.String()),
			zap.String("question_id", issue.QuestionID),
			zap.String("question_type", issue.Type),
			zap.String("problem", issue.Problem),
		)
	}
}

// checkWritable rejects edits to templates and to surveys of another owner.
func checkWritable(doc *entity.Survey, ownerID string) error {
	if doc.IsTemplate {
		return &entity.PermissionError{Action: "edit " + doc.ID.String(), Reason: "templates are read-only"}
	}
	if ownerID != "" && doc.OwnerID != "" && doc.OwnerID != ownerID {
		return &entity.PermissionError{Action: "edit " + doc.ID.String(), Reason: "survey belongs to another owner"}
	}
	return nil
}
