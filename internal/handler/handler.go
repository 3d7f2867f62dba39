// Package handler exposes the survey builder over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Koyo-os/survey-service/internal/builder"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/Koyo-os/survey-service/internal/template"
	"github.com/Koyo-os/survey-service/pkg/health"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OwnerHeader carries the id of the caller. Authentication happens upstream.
const OwnerHeader = "X-Owner-ID"

// Service is the part of the survey service served over HTTP.
type Service interface {
	Registry() *registry.Registry
	Load(ctx context.Context, id uuid.UUID) (*entity.Survey, error)
	SaveDocument(ctx context.Context, ownerID string, doc *entity.Survey) (uuid.UUID, error)
	Apply(ctx context.Context, id uuid.UUID, ownerID string, ops []builder.Operation) (*entity.Survey, []builder.Result, error)
	CloneTemplate(ctx context.Context, templateID uuid.UUID, ownerID string, o template.Overrides) (uuid.UUID, error)
	ListTemplates(ctx context.Context, filter entity.TemplateFilter) ([]*entity.Survey, error)
}

type (
	Handler struct {
		service Service
		logger  *logger.Logger
	}

	idResponse struct {
		ID string `json:"id"`
	}

	applyRequest struct {
		Operations []builder.Operation `json:"operations"`
	}

	applyResponse struct {
		Survey  *entity.Survey   `json:"survey"`
		Results []builder.Result `json:"results"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func Init(service Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Wire builds the router. checker may be nil.
func (h *Handler) Wire(checker *health.HealthChecker) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.Recoverer)

	if checker != nil {
		checker.Register(root)
	}

	root.Route("/question-types", func(r chi.Router) {
		r.Get("/", h.ListQuestionTypes)
		r.Get("/{key}", h.GetQuestionType)
	})

	root.Route("/surveys", func(r chi.Router) {
		r.Post("/", h.CreateSurvey)
		r.Get("/{id}", h.GetSurvey)
		r.Put("/{id}", h.UpdateSurvey)
		r.Post("/{id}/operations", h.ApplyOperations)
	})

	root.Route("/templates", func(r chi.Router) {
		r.Get("/", h.ListTemplates)
		r.Post("/{id}/instantiate", h.InstantiateTemplate)
	})

	return root
}

// ListQuestionTypes returns the catalog, optionally narrowed by the
// "category" and "plan" query parameters.
func (h *Handler) ListQuestionTypes(w http.ResponseWriter, r *http.Request) {
	reg := h.service.Registry()
	types := reg.ListTypes()

	if plan := r.URL.Query().Get("plan"); plan != "" {
		types = intersect(types, reg.AvailableFor(registry.Plan(plan)))
	}
	if category := r.URL.Query().Get("category"); category != "" {
		types = intersect(types, reg.ByCategory(category))
	}

	out := make([]registry.Metadata, 0, len(types))
	for _, t := range types {
		out = append(out, t.Metadata())
	}

	render.JSON(w, r, out)
}

func (h *Handler) GetQuestionType(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Registry().GetQuestionType(chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, t.Metadata())
}

func (h *Handler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc, err := h.service.Load(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, doc)
}

// CreateSurvey stores a new document. Any id in the body is ignored.
func (h *Handler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	doc := new(entity.Survey)
	if err := render.DecodeJSON(r.Body, doc); err != nil {
		h.fail(w, r, entity.NewValidationError("body", "%v", err))
		return
	}
	doc.ID = uuid.Nil

	id, err := h.service.SaveDocument(r.Context(), owner(r), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, idResponse{ID: id.String()})
}

// UpdateSurvey replaces the document stored under the path id.
func (h *Handler) UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc := new(entity.Survey)
	if err := render.DecodeJSON(r.Body, doc); err != nil {
		h.fail(w, r, entity.NewValidationError("body", "%v", err))
		return
	}
	doc.ID = id

	saved, err := h.service.SaveDocument(r.Context(), owner(r), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, idResponse{ID: saved.String()})
}

// ApplyOperations runs a batch of builder operations. The batch is applied
// as a whole or not at all.
func (h *Handler) ApplyOperations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req := new(applyRequest)
	if err := render.DecodeJSON(r.Body, req); err != nil {
		h.fail(w, r, entity.NewValidationError("body", "%v", err))
		return
	}

	doc, results, err := h.service.Apply(r.Context(), id, owner(r), req.Operations)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, applyResponse{Survey: doc, Results: results})
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	templates, err := h.service.ListTemplates(r.Context(), entity.TemplateFilter{
		Category: q.Get("category"),
		Industry: q.Get("industry"),
		Search:   q.Get("search"),
		OwnerID:  owner(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if templates == nil {
		templates = []*entity.Survey{}
	}

	render.JSON(w, r, templates)
}

// InstantiateTemplate creates a survey from a template. The body is
// optional and may override the title and description.
func (h *Handler) InstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var o template.Overrides
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &o); err != nil {
			h.fail(w, r, entity.NewValidationError("body", "%v", err))
			return
		}
	}

	surveyID, err := h.service.CloneTemplate(r.Context(), id, owner(r), o)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, idResponse{ID: surveyID.String()})
}

// fail maps the error taxonomy to a status code and writes it as JSON.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, entity.NewValidationError("id", "%q is not a valid id", raw)
	}
	return id, nil
}

func owner(r *http.Request) string {
	return r.Header.Get(OwnerHeader)
}

func intersect(types, allowed []registry.QuestionType) []registry.QuestionType {
	keep := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		keep[t.Key] = struct{}{}
	}

	out := types[:0]
	for _, t := range types {
		if _, ok := keep[t.Key]; ok {
			out = append(out, t)
		}
	}
	return out
}
