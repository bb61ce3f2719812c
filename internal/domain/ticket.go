package domain

import "time"

// Ticket gates one user through the human-verification challenge
type Ticket struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"user_id"`
	PendingMessageID int       `json:"pending_message_id,omitempty"`
	IssuedAt         time.Time `json:"issued_at"`
}

// Redemption is the outcome of a challenge submission
type Redemption struct {
	Success          bool
	Reasons          []string
	UserID           int64
	PendingMessageID int
}
