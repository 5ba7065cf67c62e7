package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/leondli/tagserver/pkg/response"
)

// PingFunc checks a dependency
type PingFunc func(ctx context.Context) error

// HealthResponse is the liveness body
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse is the readiness body
type ReadinessResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	ping    PingFunc
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a new health handler. ping backs the readiness probe only.
func NewHealthHandler(ping PingFunc, timeout time.Duration) *HealthHandler {
	return &HealthHandler{ping: ping, timeout: timeout, now: time.Now}
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Ready godoc
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if err := h.ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Readiness check failed")
		response.ServiceUnavailable(c, ReadinessResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	response.Success(c, ReadinessResponse{Status: "ready"})
}
