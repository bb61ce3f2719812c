package platform

import "context"

// Reaction is one entry of a message's reaction list
type Reaction struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// InputMedia is one item of a media group
type InputMedia struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// Chat is the subset of getChat used to rebuild a profile
type Chat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func withThread(p Params, threadID int) Params {
	if threadID != 0 {
		p["message_thread_id"] = threadID
	}
	return p
}

// SendMessage sends text, optionally into a thread and with a reply markup
func (c *Client) SendMessage(ctx context.Context, chatID int64, threadID int, text string, markup any) Result {
	p := withThread(Params{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}, threadID)
	if markup != nil {
		p["reply_markup"] = markup
	}
	return c.Invoke(ctx, "sendMessage", p)
}

// EditMessageText replaces the text and markup of a sent message
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup any) Result {
	p := Params{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		p["reply_markup"] = markup
	}
	return c.Invoke(ctx, "editMessageText", p)
}

// CopyMessage copies a message without a forward header
func (c *Client) CopyMessage(ctx context.Context, toChatID int64, toThreadID int, fromChatID int64, messageID int) Result {
	return c.Invoke(ctx, "copyMessage", withThread(Params{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}, toThreadID))
}

// ForwardMessage forwards a message with its origin header
func (c *Client) ForwardMessage(ctx context.Context, toChatID int64, toThreadID int, fromChatID int64, messageID int) Result {
	return c.Invoke(ctx, "forwardMessage", withThread(Params{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}, toThreadID))
}

// CreateForumTopic creates a named thread in chatID
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string, iconColor int) Result {
	return c.Invoke(ctx, "createForumTopic", Params{
		"chat_id":    chatID,
		"name":       name,
		"icon_color": iconColor,
	})
}

// ProbeThread checks that a thread still exists by sending a chat action into it
func (c *Client) ProbeThread(ctx context.Context, chatID int64, threadID int) Result {
	return c.Invoke(ctx, "sendChatAction", withThread(Params{
		"chat_id": chatID,
		"action":  "typing",
	}, threadID))
}

// SetReaction replaces the bot's reaction on a message; an empty emoji clears it
func (c *Client) SetReaction(ctx context.Context, chatID int64, messageID int, emoji string) Result {
	reactions := []Reaction{}
	if emoji != "" {
		reactions = append(reactions, Reaction{Type: "emoji", Emoji: emoji})
	}
	return c.Invoke(ctx, "setMessageReaction", Params{
		"chat_id":    chatID,
		"message_id": messageID,
		"reaction":   reactions,
	})
}

// SendMediaGroup sends items as one album
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, threadID int, media []InputMedia) Result {
	return c.Invoke(ctx, "sendMediaGroup", withThread(Params{
		"chat_id": chatID,
		"media":   media,
	}, threadID))
}

// GetChat fetches a chat's profile
func (c *Client) GetChat(ctx context.Context, chatID int64) (Chat, Result) {
	res := c.Invoke(ctx, "getChat", Params{"chat_id": chatID})
	var chat Chat
	if res.OK {
		if err := res.Decode(&chat); err != nil {
			return Chat{}, Result{Method: res.Method, Description: err.Error()}
		}
	}
	return chat, res
}

// AnswerCallback answers a callback query with an optional toast
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) Result {
	p := Params{"callback_query_id": callbackID}
	if text != "" {
		p["text"] = text
	}
	return c.Invoke(ctx, "answerCallbackQuery", p)
}

// DeleteMessage deletes a message
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) Result {
	return c.Invoke(ctx, "deleteMessage", Params{
		"chat_id":    chatID,
		"message_id": messageID,
	})
}

// SetWebhook registers url as the update endpoint
func (c *Client) SetWebhook(ctx context.Context, url, secret string) Result {
	p := Params{
		"url":             url,
		"allowed_updates": []string{"message", "edited_message", "callback_query"},
	}
	if secret != "" {
		p["secret_token"] = secret
	}
	return c.Invoke(ctx, "setWebhook", p)
}
