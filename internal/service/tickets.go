package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/metrics"
	"topicrelay/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTicketTTL is the lifetime of a challenge ticket
	DefaultTicketTTL = 10 * time.Minute
	// DefaultVerifyTTL is how long a passed challenge stays valid
	DefaultVerifyTTL = 7 * 24 * time.Hour
)

// Reason codes returned to the verification page
const (
	ReasonMissingProof = "missing-input-response"
	ReasonUnavailable  = "verifier-unavailable"
)

// TicketsConfig holds the ticket manager settings
type TicketsConfig struct {
	PublicURL string
	TicketTTL time.Duration
	VerifyTTL time.Duration
}

// Tickets issues, deduplicates and redeems verification tickets
type Tickets struct {
	tickets  *repository.TicketRepo
	users    *repository.UserRepo
	settings *repository.SettingsRepo
	verifier ChallengeVerifier
	cfg      TicketsConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewTickets creates a ticket manager. A nil verifier disables verification.
func NewTickets(
	tickets *repository.TicketRepo,
	users *repository.UserRepo,
	settings *repository.SettingsRepo,
	verifier ChallengeVerifier,
	cfg TicketsConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Tickets {
	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = DefaultTicketTTL
	}
	// zero keeps verification forever, matching /verifyttl 0
	if cfg.VerifyTTL < 0 {
		cfg.VerifyTTL = DefaultVerifyTTL
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return &Tickets{
		tickets:  tickets,
		users:    users,
		settings: settings,
		verifier: verifier,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Enabled reports whether first contact is gated behind the challenge
func (t *Tickets) Enabled() bool {
	return t.verifier != nil
}

// Ensure replaces any active ticket of userID with a fresh one and returns it with its challenge link
func (t *Tickets) Ensure(ctx context.Context, userID int64, pendingMessageID int) (domain.Ticket, string, error) {
	if _, err := t.tickets.DeleteOwnedBy(ctx, userID); err != nil {
		return domain.Ticket{}, "", fmt.Errorf("drop previous tickets: %w", err)
	}

	ticket := domain.Ticket{
		ID:               t.newID(),
		UserID:           userID,
		PendingMessageID: pendingMessageID,
		IssuedAt:         t.now().UTC(),
	}
	if err := t.tickets.Create(ctx, ticket, t.cfg.TicketTTL); err != nil {
		return domain.Ticket{}, "", fmt.Errorf("store ticket: %w", err)
	}
	t.metrics.Tickets.WithLabelValues("issued").Inc()

	t.logger.Info("Verification ticket issued",
		zap.Int64("user_id", userID),
		zap.String("ticket_id", ticket.ID),
	)
	return ticket, t.Link(ticket), nil
}

// Link builds the challenge page URL for ticket
func (t *Tickets) Link(ticket domain.Ticket) string {
	q := url.Values{}
	q.Set("ticket", ticket.ID)
	q.Set("user", strconv.FormatInt(ticket.UserID, 10))
	return t.cfg.PublicURL + "/verify?" + q.Encode()
}

// Lookup returns the live ticket if it belongs to userID
func (t *Tickets) Lookup(ctx context.Context, ticketID string, userID int64) (domain.Ticket, error) {
	if ticketID == "" {
		return domain.Ticket{}, ErrTicketInvalid
	}
	ticket, err := t.tickets.Get(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Ticket{}, ErrTicketInvalid
	}
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.UserID != userID {
		return domain.Ticket{}, ErrTicketInvalid
	}
	return ticket, nil
}

// Redeem validates proof for the ticket. A rejected proof leaves the ticket
// usable until it expires; an accepted one verifies the user and removes all
// of their tickets.
func (t *Tickets) Redeem(ctx context.Context, ticketID string, userID int64, proof, remoteIP string) (domain.Redemption, error) {
	ticket, err := t.Lookup(ctx, ticketID, userID)
	if err != nil {
		return domain.Redemption{}, err
	}

	out := domain.Redemption{UserID: userID}
	if proof == "" {
		out.Reasons = []string{ReasonMissingProof}
		return out, nil
	}

	verdict, err := t.verifier.Verify(ctx, proof, remoteIP)
	if err != nil {
		t.logger.Warn("Challenge verifier unavailable", zap.Int64("user_id", userID), zap.Error(err))
		out.Reasons = []string{ReasonUnavailable}
		return out, nil
	}
	if !verdict.Success {
		t.metrics.Tickets.WithLabelValues("rejected").Inc()
		t.logger.Debug("Challenge rejected",
			zap.Int64("user_id", userID),
			zap.Strings("codes", verdict.ErrorCodes),
		)
		out.Reasons = verdict.ErrorCodes
		return out, nil
	}

	ttl := t.verifyTTL(ctx)
	if _, err := t.users.Update(ctx, userID, func(u *domain.UserState) {
		u.MarkVerified(t.now(), ttl)
	}); err != nil {
		return domain.Redemption{}, fmt.Errorf("mark user verified: %w", err)
	}
	if _, err := t.tickets.DeleteOwnedBy(ctx, userID); err != nil {
		t.logger.Warn("Failed to delete redeemed tickets", zap.Int64("user_id", userID), zap.Error(err))
	}
	t.metrics.Tickets.WithLabelValues("redeemed").Inc()

	t.logger.Info("User verified",
		zap.Int64("user_id", userID),
		zap.Duration("ttl", ttl),
	)

	out.Success = true
	out.PendingMessageID = ticket.PendingMessageID
	return out, nil
}

// Refresh replaces ticketID with a new ticket for the same user and pending message
func (t *Tickets) Refresh(ctx context.Context, ticketID string, userID int64) (domain.Ticket, string, error) {
	old, err := t.Lookup(ctx, ticketID, userID)
	if err != nil {
		return domain.Ticket{}, "", err
	}
	if err := t.tickets.Delete(ctx, old.ID); err != nil {
		return domain.Ticket{}, "", fmt.Errorf("delete ticket: %w", err)
	}
	t.metrics.Tickets.WithLabelValues("refreshed").Inc()
	return t.Ensure(ctx, old.UserID, old.PendingMessageID)
}

// Reset clears the user's verification and removes their tickets
func (t *Tickets) Reset(ctx context.Context, userID int64) error {
	if _, err := t.users.Update(ctx, userID, func(u *domain.UserState) {
		u.ResetVerification()
	}); err != nil {
		return err
	}
	_, err := t.tickets.DeleteOwnedBy(ctx, userID)
	return err
}

// verifyTTL prefers the staff-configured lifetime over the default
func (t *Tickets) verifyTTL(ctx context.Context) time.Duration {
	ttl, found, err := t.settings.VerifyTTL(ctx)
	if err != nil {
		t.logger.Warn("Failed to read verify ttl, using default", zap.Error(err))
	}
	if !found || err != nil {
		return t.cfg.VerifyTTL
	}
	return ttl
}
