package domain

import (
	"fmt"
	"strings"
	"time"
)

// UserState holds the moderation and verification flags of an end user
type UserState struct {
	ID            int64      `json:"id"`
	Verified      bool       `json:"verified"`
	VerifiedUntil *time.Time `json:"verified_until,omitempty"`
	Banned        bool       `json:"banned"`
	Closed        bool       `json:"closed"`
}

// IsVerified reports whether the user passed the challenge and it has not expired
func (u UserState) IsVerified(now time.Time) bool {
	if !u.Verified {
		return false
	}
	return u.VerifiedUntil == nil || now.Before(*u.VerifiedUntil)
}

// MarkVerified sets the verified flag for ttl; a non-positive ttl never expires
func (u *UserState) MarkVerified(now time.Time, ttl time.Duration) {
	u.Verified = true
	u.VerifiedUntil = nil
	if ttl > 0 {
		until := now.Add(ttl)
		u.VerifiedUntil = &until
	}
}

// ResetVerification forces the user through the challenge again
func (u *UserState) ResetVerification() {
	u.Verified = false
	u.VerifiedUntil = nil
}

// Profile is the public identity used to name and introduce a thread
type Profile struct {
	UserID      int64
	DisplayName string
	Handle      string
}

// NewProfile builds a profile from the platform's name fields
func NewProfile(userID int64, firstName, lastName, username string) Profile {
	return Profile{
		UserID:      userID,
		DisplayName: strings.TrimSpace(firstName + " " + lastName),
		Handle:      strings.TrimPrefix(username, "@"),
	}
}

// ThreadTitle names the user's thread: handle preferred, then display name, then the bare id
func (p Profile) ThreadTitle() string {
	var title string
	switch {
	case p.Handle != "":
		title = fmt.Sprintf("@%s (%d)", p.Handle, p.UserID)
	case p.DisplayName != "":
		title = fmt.Sprintf("%s (%d)", p.DisplayName, p.UserID)
	default:
		title = fmt.Sprintf("User (%d)", p.UserID)
	}
	// forum topic names are capped at 128 characters
	if r := []rune(title); len(r) > 128 {
		title = string(r[:128])
	}
	return title
}

// IntroCard is the first message posted into a freshly created thread
func (p Profile) IntroCard() string {
	handle := "-"
	if p.Handle != "" {
		handle = "@" + p.Handle
	}
	name := p.DisplayName
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("👤 New conversation\n\nName: %s\nUsername: %s\nID: %d", name, handle, p.UserID)
}
