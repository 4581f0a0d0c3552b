package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type healthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// WithHealthCheck registers a named dependency probe for the health endpoint.
func (h *Handler) WithHealthCheck(name string, check HealthCheck) *Handler {
	if h.healthChecks == nil {
		h.healthChecks = make(map[string]HealthCheck)
	}
	h.healthChecks[name] = check
	return h
}

// CheckHealth reports overall service health, probing each registered
// dependency.
func (h *Handler) CheckHealth(c *gin.Context) {
	status := healthStatus{Status: "ok"}
	if len(h.healthChecks) > 0 {
		status.Components = make(map[string]string, len(h.healthChecks))
	}

	code := http.StatusOK
	for name, check := range h.healthChecks {
		if err := check(c.Request.Context()); err != nil {
			status.Status = "degraded"
			status.Components[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status.Components[name] = "ok"
	}

	sendJSON(c, code, status)
}
