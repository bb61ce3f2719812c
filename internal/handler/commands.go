package handler

import (
	"context"
	"errors"
	"strings"

	"topicrelay/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// threadCommand adapts a per-thread staff action into a handler replying in the same thread
func (h *Handler) threadCommand(name string, action func(ctx context.Context, threadID int) (string, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := c.Message()
		ctx := context.Background()

		reply, err := action(ctx, msg.ThreadID)
		if err != nil {
			reply = h.commandError(name, msg.ThreadID, err)
		}
		h.reply(ctx, msg.ThreadID, reply)
		return nil
	}
}

// handleVerifyTTL handles /verifyttl <duration>
func (h *Handler) handleVerifyTTL(c tele.Context) error {
	msg := c.Message()
	ctx := context.Background()

	reply, err := h.admin.SetVerifyTTL(ctx, strings.TrimSpace(msg.Payload))
	if err != nil {
		reply = "⚠️ " + err.Error()
	}
	h.reply(ctx, msg.ThreadID, reply)
	return nil
}

func (h *Handler) commandError(name string, threadID int, err error) string {
	if errors.Is(err, service.ErrUnboundThread) {
		return "⚠️ Use this command inside a user's thread."
	}
	h.logger.Error("Staff command failed",
		zap.String("command", name),
		zap.Int("thread_id", threadID),
		zap.Error(err),
	)
	return "⚠️ Command failed, please try again."
}

func (h *Handler) reply(ctx context.Context, threadID int, text string) {
	if res := h.api.SendMessage(ctx, h.groupID, threadID, text, nil); !res.OK {
		h.logger.Warn("Failed to reply to staff command", zap.Error(res.Err()))
	}
}
