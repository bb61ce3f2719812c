package handler

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"topicrelay/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// handleRefresh reissues an expired or unused challenge link in place
func (h *Handler) handleRefresh(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleRefresh: callback is nil")
		return nil
	}
	ctx := context.Background()
	userID := c.Sender().ID
	ticketID := cleanCallbackData(callback.Data)

	h.logger.Info("handleRefresh: Processing callback",
		zap.String("ticket_id", ticketID),
		zap.String("id", callback.ID),
		zap.Int64("user_id", userID),
	)

	ticket, link, err := h.tickets.Refresh(ctx, ticketID, userID)
	if err != nil {
		if !errors.Is(err, service.ErrTicketInvalid) {
			h.logger.Error("Failed to refresh ticket", zap.Int64("user_id", userID), zap.Error(err))
		}
		h.answer(ctx, callback.ID, service.NoticeLinkExpired)
		return nil
	}

	if callback.Message != nil {
		res := h.api.EditMessageText(ctx, userID, callback.Message.ID, service.NoticeVerify, service.ChallengeMarkup(link, ticket.ID))
		// an unchanged message is not a failure
		if !res.OK && !strings.Contains(res.Description, "message is not modified") {
			h.logger.Warn("Failed to edit challenge, sending new",
				zap.Int64("user_id", userID),
				zap.Error(res.Err()),
			)
			h.api.SendMessage(ctx, userID, 0, service.NoticeVerify, service.ChallengeMarkup(link, ticket.ID))
		}
	}

	h.answer(ctx, callback.ID, service.NoticeLinkRefreshed)
	return nil
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if res := h.api.AnswerCallback(ctx, callbackID, text); !res.OK {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(res.Err()))
	}
}
