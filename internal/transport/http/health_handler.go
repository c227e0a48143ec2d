package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/oonisim/ml-credit-risk/internal/config"
	"github.com/oonisim/ml-credit-risk/internal/infrastructure"
)

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string                       `json:"status"`
	Service   string                       `json:"service"`
	Version   string                       `json:"version"`
	Uptime    string                       `json:"uptime"`
	Stages    []string                     `json:"stages"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	runtime *infrastructure.RuntimeMetrics
	stages  []string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler. runtime may be nil when
// metrics are disabled.
func NewHealthHandler(runtime *infrastructure.RuntimeMetrics, stages []string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		runtime: runtime,
		stages:  nonNilStrings(stages),
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Service:   config.AppName,
		Version:   config.AppVersion,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Stages:    h.stages,
		Timestamp: time.Now().UTC(),
	}
	if h.runtime != nil {
		stats := h.runtime.Snapshot()
		resp.Runtime = &stats
	}

	h.logger.DebugContext(r.Context(), "health_check", slog.String("uptime", resp.Uptime))
	render.JSON(w, r, resp)
}
