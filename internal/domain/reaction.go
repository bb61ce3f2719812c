package domain

// Acknowledgment emojis
const (
	EmojiConfirmed   = "👍"
	EmojiPlaceholder = "✍"
)

// ReactionTarget identifies the message an acknowledgment is applied to
type ReactionTarget struct {
	ChatID    int64
	MessageID int
	ThreadID  int
}
