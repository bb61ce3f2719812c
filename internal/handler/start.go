package handler

import (
	"context"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const greeting = "👋 Hi! Send your message here and our team will get back to you in this chat."

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	sender := c.Sender()

	h.logger.Info("User started bot",
		zap.Int64("user_id", sender.ID),
		zap.String("username", sender.Username),
	)

	ctx := context.Background()
	if _, ok := h.relay.Gate(ctx, sender.ID); !ok {
		return nil
	}

	if res := h.api.SendMessage(ctx, sender.ID, 0, greeting, nil); !res.OK {
		return res.Err()
	}
	return nil
}
