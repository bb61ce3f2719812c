package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/repository"

	"go.uber.org/zap"
)

// Admin applies staff commands issued inside a user's thread
type Admin struct {
	users     *repository.UserRepo
	settings  *repository.SettingsRepo
	directory *Directory
	tickets   *Tickets
	logger    *zap.Logger

	now func() time.Time
}

// NewAdmin creates the staff command service
func NewAdmin(
	users *repository.UserRepo,
	settings *repository.SettingsRepo,
	directory *Directory,
	tickets *Tickets,
	logger *zap.Logger,
) *Admin {
	return &Admin{
		users:     users,
		settings:  settings,
		directory: directory,
		tickets:   tickets,
		logger:    logger,
		now:       time.Now,
	}
}

// Ban stops relaying in both directions for the thread's user
func (a *Admin) Ban(ctx context.Context, threadID int) (string, error) {
	return a.update(ctx, threadID, "ban", "⛔ User %d banned.", func(u *domain.UserState) { u.Banned = true })
}

// Unban lifts a ban
func (a *Admin) Unban(ctx context.Context, threadID int) (string, error) {
	return a.update(ctx, threadID, "unban", "✅ User %d unbanned.", func(u *domain.UserState) { u.Banned = false })
}

// Close stops accepting the user's messages; the user is told the conversation is closed
func (a *Admin) Close(ctx context.Context, threadID int) (string, error) {
	return a.update(ctx, threadID, "close", "🔒 Conversation with %d closed.", func(u *domain.UserState) { u.Closed = true })
}

// Open reopens a closed conversation
func (a *Admin) Open(ctx context.Context, threadID int) (string, error) {
	return a.update(ctx, threadID, "open", "🔓 Conversation with %d reopened.", func(u *domain.UserState) { u.Closed = false })
}

// Reset forces the thread's user through verification again
func (a *Admin) Reset(ctx context.Context, threadID int) (string, error) {
	userID, err := a.owner(ctx, threadID)
	if err != nil {
		return "", err
	}
	if err := a.tickets.Reset(ctx, userID); err != nil {
		return "", fmt.Errorf("reset user %d: %w", userID, err)
	}
	a.logger.Info("Staff command applied", zap.String("command", "reset"), zap.Int64("user_id", userID))
	return fmt.Sprintf("🔄 Verification of %d reset.", userID), nil
}

// Info renders the user's state card
func (a *Admin) Info(ctx context.Context, threadID int) (string, error) {
	userID, err := a.owner(ctx, threadID)
	if err != nil {
		return "", err
	}
	state, err := a.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	verified := "no"
	if state.IsVerified(a.now()) {
		verified = "yes"
		if state.VerifiedUntil != nil {
			verified += ", until " + state.VerifiedUntil.UTC().Format("2006-01-02 15:04 MST")
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 User %d\n", userID)
	fmt.Fprintf(&b, "Thread: %d\n", threadID)
	fmt.Fprintf(&b, "Verified: %s\n", verified)
	fmt.Fprintf(&b, "Banned: %s\n", yesNo(state.Banned))
	fmt.Fprintf(&b, "Closed: %s", yesNo(state.Closed))
	return b.String(), nil
}

// SetVerifyTTL changes how long a passed challenge stays valid.
// Accepts Go durations ("72h") and whole days ("7d"); zero means forever.
func (a *Admin) SetVerifyTTL(ctx context.Context, arg string) (string, error) {
	ttl, err := ParseTTL(arg)
	if err != nil {
		return "", err
	}
	if err := a.settings.SetVerifyTTL(ctx, ttl); err != nil {
		return "", fmt.Errorf("store verify ttl: %w", err)
	}
	a.logger.Info("Verification lifetime changed", zap.Duration("ttl", ttl))
	if ttl == 0 {
		return "⏱ Verification no longer expires.", nil
	}
	return fmt.Sprintf("⏱ Verification now lasts %s.", ttl), nil
}

// ParseTTL parses a duration with an optional whole-day "d" suffix
func ParseTTL(arg string) (time.Duration, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("usage: /verifyttl <duration>, e.g. 7d or 72h")
	}

	var ttl time.Duration
	if days, ok := strings.CutSuffix(arg, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", arg)
		}
		ttl = time.Duration(n) * 24 * time.Hour
	} else {
		d, err := time.ParseDuration(arg)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", arg)
		}
		ttl = d
	}

	if ttl < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return ttl, nil
}

func (a *Admin) update(ctx context.Context, threadID int, command, reply string, fn func(*domain.UserState)) (string, error) {
	userID, err := a.owner(ctx, threadID)
	if err != nil {
		return "", err
	}
	if _, err := a.users.Update(ctx, userID, fn); err != nil {
		return "", fmt.Errorf("%s user %d: %w", command, userID, err)
	}
	a.logger.Info("Staff command applied", zap.String("command", command), zap.Int64("user_id", userID))
	return fmt.Sprintf(reply, userID), nil
}

func (a *Admin) owner(ctx context.Context, threadID int) (int64, error) {
	if threadID == 0 {
		return 0, ErrUnboundThread
	}
	userID, found, err := a.directory.LookupUser(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrUnboundThread
	}
	return userID, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
