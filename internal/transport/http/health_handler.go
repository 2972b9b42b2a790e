package http

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/render"
)

// ReadinessCheck reports whether a dependency is ready to serve
type ReadinessCheck func(ctx context.Context) error

// RouteInfo describes one entry of the exception handler mapping
type RouteInfo struct {
	Kind    string `json:"kind"`
	Handler string `json:"handler"`
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionResponse is the body of GET /api/version
type VersionResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	GoVersion   string `json:"go_version"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	name        string
	version     string
	environment string
	started     time.Time
	checks      map[string]ReadinessCheck
	routes      func() []RouteInfo
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(name, version, environment string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		name:        name,
		version:     version,
		environment: environment,
		started:     time.Now(),
		checks:      make(map[string]ReadinessCheck),
		routes:      func() []RouteInfo { return nil },
		logger:      logger.With(slog.String("handler", "health")),
	}
}

// AddCheck registers a readiness check. Not safe to call once serving.
func (h *HealthHandler) AddCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetRoutes sets the source of the exception handler mapping
func (h *HealthHandler) SetRoutes(routes func() []RouteInfo) {
	h.routes = routes
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.runChecks(r.Context()))
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "alive",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}

// ReadinessCheck handles GET /api/health/ready
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	resp := h.runChecks(r.Context())
	if resp.Status != "healthy" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, VersionResponse{
		Name:        h.name,
		Version:     h.version,
		Environment: h.environment,
		GoVersion:   runtime.Version(),
	})
}

// ExceptionRoutes handles GET /api/exceptions
func (h *HealthHandler) ExceptionRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.routes()
	if routes == nil {
		routes = []RouteInfo{}
	}
	render.JSON(w, r, routes)
}

func (h *HealthHandler) runChecks(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks[name] = err.Error()
			h.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("error", err.Error()))
			continue
		}
		resp.Checks[name] = "ok"
	}
	return resp
}
