package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler creates a health handler that checks deps by name.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK
	for name, p := range h.deps {
		if err := p.Ping(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	body := gin.H{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	c.JSON(status, body)
}
