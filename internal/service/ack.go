package service

import (
	"context"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"

	"go.uber.org/zap"
)

const (
	// EditSettleDelay separates the placeholder and confirmed reactions on edits
	EditSettleDelay = time.Second
	// ackAttempts bounds tries per reaction change
	ackAttempts = 3
	// ackBackoff grows linearly: backoff, 2×backoff, ...
	ackBackoff = 300 * time.Millisecond
)

type ackOutcome int

const (
	ackApplied ackOutcome = iota
	ackThreadMissing
	ackDropped
)

// Acknowledger marks relayed messages with a delivery reaction.
// Acknowledgment is best effort and never reports an error to the caller.
type Acknowledger struct {
	api       *platform.Client
	scheduler Scheduler
	metrics   *metrics.Metrics
	logger    *zap.Logger

	settle  time.Duration
	backoff time.Duration
}

// AckOption tunes an Acknowledger
type AckOption func(*Acknowledger)

// WithSettleDelay overrides EditSettleDelay
func WithSettleDelay(d time.Duration) AckOption {
	return func(a *Acknowledger) { a.settle = d }
}

// WithRetryBackoff overrides the base retry backoff
func WithRetryBackoff(d time.Duration) AckOption {
	return func(a *Acknowledger) { a.backoff = d }
}

// NewAcknowledger creates a new acknowledger
func NewAcknowledger(
	api *platform.Client,
	scheduler Scheduler,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...AckOption,
) *Acknowledger {
	a := &Acknowledger{
		api:       api,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
		settle:    EditSettleDelay,
		backoff:   ackBackoff,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acknowledge clears the target's reaction, then applies the confirmed emoji,
// or for edits the placeholder followed by the confirmed emoji one settle delay later.
func (a *Acknowledger) Acknowledge(ctx context.Context, target domain.ReactionTarget, isEdit bool) {
	if a.apply(ctx, target, "") == ackThreadMissing {
		return
	}

	emoji := domain.EmojiConfirmed
	if isEdit {
		emoji = domain.EmojiPlaceholder
	}
	if a.apply(ctx, target, emoji) != ackApplied || !isEdit {
		return
	}

	a.scheduler.After(a.settle, "ack-settle", func(ctx context.Context) {
		a.apply(ctx, target, domain.EmojiConfirmed)
	})
}

// apply sets emoji (empty clears) with linear-backoff retries
func (a *Acknowledger) apply(ctx context.Context, target domain.ReactionTarget, emoji string) ackOutcome {
	var res platform.Result
retry:
	for attempt := 1; attempt <= ackAttempts; attempt++ {
		res = a.api.SetReaction(ctx, target.ChatID, target.MessageID, emoji)
		if res.OK {
			a.metrics.Acks.WithLabelValues("applied").Inc()
			return ackApplied
		}
		if res.ThreadMissing() {
			a.metrics.Acks.WithLabelValues("thread_missing").Inc()
			a.logger.Warn("Acknowledgment target thread is gone",
				zap.Int64("chat_id", target.ChatID),
				zap.Int("message_id", target.MessageID),
				zap.Int("thread_id", target.ThreadID),
			)
			return ackThreadMissing
		}
		if attempt == ackAttempts {
			break
		}

		select {
		case <-ctx.Done():
			break retry
		case <-time.After(a.backoff * time.Duration(attempt)):
		}
	}

	a.metrics.Acks.WithLabelValues("dropped").Inc()
	a.logger.Warn("Acknowledgment dropped",
		zap.Int64("chat_id", target.ChatID),
		zap.Int("message_id", target.MessageID),
		zap.String("emoji", emoji),
		zap.Error(res.Err()),
	)
	return ackDropped
}
