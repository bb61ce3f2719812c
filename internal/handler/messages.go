package handler

import (
	"context"
	"strings"

	"topicrelay/internal/domain"
	"topicrelay/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleMessage routes new messages: private chats go inbound, staff thread messages go outbound
func (h *Handler) handleMessage(c tele.Context) error {
	h.route(c.Message(), false)
	return nil
}

// handleEdited relays edited messages as fresh copies
func (h *Handler) handleEdited(c tele.Context) error {
	h.route(c.Message(), true)
	return nil
}

func (h *Handler) route(msg *tele.Message, edited bool) {
	if msg == nil || msg.Sender == nil || msg.Sender.IsBot || msg.Chat == nil {
		return
	}
	ctx := context.Background()

	switch {
	case msg.Private():
		h.relay.Inbound(ctx, service.InboundMessage{
			Profile:    profileOf(msg.Sender),
			MessageID:  msg.ID,
			Edited:     edited,
			AlbumID:    msg.AlbumID,
			Attachment: attachmentOf(msg),
		})

	case msg.Chat.ID == h.groupID && msg.ThreadID != 0:
		// unregistered commands are staff chatter, not replies
		if strings.HasPrefix(msg.Text, "/") {
			return
		}
		h.relay.Outbound(ctx, service.OutboundMessage{
			ThreadID:   msg.ThreadID,
			MessageID:  msg.ID,
			Edited:     edited,
			AlbumID:    msg.AlbumID,
			Attachment: attachmentOf(msg),
		})

	default:
		h.logger.Debug("Message outside relay scope ignored",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID),
		)
	}
}

func profileOf(u *tele.User) domain.Profile {
	return domain.NewProfile(u.ID, u.FirstName, u.LastName, u.Username)
}

// attachmentOf extracts the album-capable payload of msg, if any
func attachmentOf(msg *tele.Message) *domain.Attachment {
	var a domain.Attachment
	switch {
	case msg.Photo != nil:
		a = domain.Attachment{Kind: domain.KindPhoto, FileID: msg.Photo.FileID}
	case msg.Video != nil:
		a = domain.Attachment{Kind: domain.KindVideo, FileID: msg.Video.FileID}
	case msg.Document != nil:
		a = domain.Attachment{Kind: domain.KindDocument, FileID: msg.Document.FileID}
	default:
		return nil
	}
	a.Caption = msg.Caption
	return &a
}
