package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleWebhook dispatches one update. It always answers 200: the platform
// resends on anything else and a bad update would be retried forever.
func (s *server) handleWebhook(c *gin.Context) {
	defer c.Status(http.StatusOK)

	if s.opts.WebhookSecret != "" {
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.WebhookSecret)) != 1 {
			s.deps.Logger.Warn("Webhook call with invalid secret ignored", zap.String("remote_ip", c.ClientIP()))
			return
		}
	}

	var update tele.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.deps.Logger.Debug("Unparseable update ignored", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error("Update processing panicked",
				zap.Any("panic", r),
				zap.Int("update_id", update.ID),
			)
		}
	}()
	s.deps.Bot.ProcessUpdate(update)
}
