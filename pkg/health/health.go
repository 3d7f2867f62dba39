// Package health reports whether the storage, cache and bus components of
// the service are usable.
package health

import (
	"net/http"

	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type (
	// Healther is implemented by every component that takes part in the
	// health check. IsHealthy should return quickly.
	Healther interface {
		IsHealthy() bool
	}

	// HealthChecker aggregates named components into one status.
	HealthChecker struct {
		logger     *logger.Logger
		names      []string
		components map[string]Healther
	}

	// Report is the body written by HealthCheck.
	Report struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

func NewHealthChecker(logger *logger.Logger) *HealthChecker {
	return &HealthChecker{
		logger:     logger,
		components: make(map[string]Healther),
	}
}

// Add registers a component under name. Registering the same name twice
// replaces the earlier component.
func (h *HealthChecker) Add(name string, healther Healther) *HealthChecker {
	if _, ok := h.components[name]; !ok {
		h.names = append(h.names, name)
	}
	h.components[name] = healther
	return h
}

// Check asks every component for its status. All of them are checked even
// after the first failure so the report is complete.
func (h *HealthChecker) Check() Report {
	report := Report{
		Status:     StatusOK,
		Components: make(map[string]bool, len(h.names)),
	}

	for _, name := range h.names {
		ok := h.components[name].IsHealthy()
		report.Components[name] = ok
		if !ok {
			report.Status = StatusDegraded
			h.logger.Error("health check failed", zap.String("component", name))
		}
	}

	return report
}

// HealthCheck writes the report as JSON with 200 when every component is
// healthy and 503 otherwise.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.Check()

	if report.Status == StatusOK {
		render.Status(r, http.StatusOK)
	} else {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, report)
}

// Register mounts GET /health on r.
func (h *HealthChecker) Register(r chi.Router) {
	r.Get("/health", h.HealthCheck)
}
