package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

// handleHealth reports configuration presence and store reachability
func (s *server) handleHealth(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			s.deps.Logger.Warn("Health check: store unreachable", zap.Error(err))
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status": status,
		"config": s.opts.Presence,
	})
}
