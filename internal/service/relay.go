package service

import (
	"context"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"
	"topicrelay/internal/repository"

	"go.uber.org/zap"
)

// InboundMessage is a message from a user's private chat
type InboundMessage struct {
	Profile    domain.Profile
	MessageID  int
	Edited     bool
	AlbumID    string
	Attachment *domain.Attachment
}

// OutboundMessage is a staff message inside a user's thread
type OutboundMessage struct {
	ThreadID   int
	MessageID  int
	Edited     bool
	AlbumID    string
	Attachment *domain.Attachment
}

// Relay composes the directory, delivery, aggregation and acknowledgment
type Relay struct {
	users      *repository.UserRepo
	directory  *Directory
	acks       *Acknowledger
	aggregator *Aggregator
	tickets    *Tickets
	api        *platform.Client
	groupID    int64
	metrics    *metrics.Metrics
	logger     *zap.Logger

	now func() time.Time
}

// NewRelay creates the orchestrator and hooks batch acknowledgments into the aggregator
func NewRelay(
	users *repository.UserRepo,
	directory *Directory,
	acks *Acknowledger,
	aggregator *Aggregator,
	tickets *Tickets,
	api *platform.Client,
	groupID int64,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Relay {
	r := &Relay{
		users:      users,
		directory:  directory,
		acks:       acks,
		aggregator: aggregator,
		tickets:    tickets,
		api:        api,
		groupID:    groupID,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
	aggregator.OnFlushed(r.batchDelivered)
	return r
}

// Gate applies the ban and closed rules to anything a user sends. It reports
// whether the caller may respond; a closed user has already been told so and a
// banned user gets nothing.
func (r *Relay) Gate(ctx context.Context, userID int64) (domain.UserState, bool) {
	state, err := r.users.Get(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load user state", zap.Int64("user_id", userID), zap.Error(err))
		r.notify(ctx, userID, 0, NoticeRetryLater)
		return state, false
	}

	switch {
	case state.Banned:
		r.logger.Debug("Dropping message from banned user", zap.Int64("user_id", userID))
		return state, false
	case state.Closed:
		r.notify(ctx, userID, 0, NoticeClosed)
		return state, false
	}
	return state, true
}

// Inbound relays a user's message into their thread
func (r *Relay) Inbound(ctx context.Context, msg InboundMessage) {
	r.inbound(ctx, msg)
}

// inbound reports whether msg was delivered or handed to the aggregator
func (r *Relay) inbound(ctx context.Context, msg InboundMessage) bool {
	state, ok := r.Gate(ctx, msg.Profile.UserID)
	if !ok {
		return false
	}
	if r.tickets.Enabled() && !state.IsVerified(r.now()) {
		r.challenge(ctx, msg)
		return false
	}

	return r.deliverInbound(ctx, msg)
}

// challenge issues a ticket holding msg for replay and prompts the user
func (r *Relay) challenge(ctx context.Context, msg InboundMessage) {
	userID := msg.Profile.UserID

	ticket, link, err := r.tickets.Ensure(ctx, userID, msg.MessageID)
	if err != nil {
		r.logger.Error("Failed to issue ticket", zap.Int64("user_id", userID), zap.Error(err))
		r.notify(ctx, userID, 0, NoticeRetryLater)
		return
	}

	res := r.api.SendMessage(ctx, userID, 0, NoticeVerify, ChallengeMarkup(link, ticket.ID))
	if !res.OK {
		r.logger.Warn("Failed to send challenge", zap.Int64("user_id", userID), zap.Error(res.Err()))
	}
}

func (r *Relay) deliverInbound(ctx context.Context, msg InboundMessage) bool {
	userID := msg.Profile.UserID

	threadID, err := r.directory.ResolveThread(ctx, msg.Profile)
	if err != nil {
		r.fail("inbound", userID, err)
		r.notify(ctx, userID, 0, NoticeRetryLater)
		return false
	}

	if msg.AlbumID != "" && msg.Attachment != nil {
		item := *msg.Attachment
		item.SourceChatID = userID
		item.MessageID = msg.MessageID
		item.Edited = msg.Edited
		dest := domain.Destination{ChatID: r.groupID, ThreadID: threadID}
		if err := r.aggregator.Absorb(ctx, msg.AlbumID, item, dest); err != nil {
			r.fail("inbound", userID, err)
			r.notify(ctx, userID, 0, NoticeRetryLater)
			return false
		}
		return true
	}

	res := r.forwardOrCopy(ctx, threadID, userID, msg.MessageID)
	if res.ThreadMissing() {
		// deleted between the probe and delivery: resolving again recreates it
		if threadID, err = r.directory.ResolveThread(ctx, msg.Profile); err == nil {
			res = r.forwardOrCopy(ctx, threadID, userID, msg.MessageID)
		}
	}
	if !res.OK {
		r.fail("inbound", userID, res.Err())
		r.notify(ctx, userID, 0, NoticeRetryLater)
		return false
	}
	r.metrics.Relayed.WithLabelValues("inbound", "ok").Inc()

	r.acks.Acknowledge(ctx, domain.ReactionTarget{ChatID: userID, MessageID: msg.MessageID}, msg.Edited)
	r.acks.Acknowledge(ctx, domain.ReactionTarget{ChatID: r.groupID, MessageID: res.MessageID(), ThreadID: threadID}, msg.Edited)
	return true
}

// forwardOrCopy forwards the user's message and degrades to a copy on failure
func (r *Relay) forwardOrCopy(ctx context.Context, threadID int, userID int64, messageID int) platform.Result {
	res := r.api.ForwardMessage(ctx, r.groupID, threadID, userID, messageID)
	if res.OK || res.ThreadMissing() {
		return res
	}
	r.logger.Warn("Forward failed, falling back to copy",
		zap.Int64("user_id", userID),
		zap.Int("thread_id", threadID),
		zap.Error(res.Err()),
	)
	return r.api.CopyMessage(ctx, r.groupID, threadID, userID, messageID)
}

// Outbound relays a staff message from a thread to its user
func (r *Relay) Outbound(ctx context.Context, msg OutboundMessage) {
	userID, found, err := r.directory.LookupUser(ctx, msg.ThreadID)
	if err != nil {
		r.logger.Error("Failed to look up thread owner", zap.Int("thread_id", msg.ThreadID), zap.Error(err))
		return
	}
	if !found {
		r.logger.Debug("Message in unbound thread ignored", zap.Int("thread_id", msg.ThreadID))
		return
	}

	state, err := r.users.Get(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load user state", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if state.Banned {
		r.notify(ctx, r.groupID, msg.ThreadID, NoticeUserBanned)
		return
	}

	if msg.AlbumID != "" && msg.Attachment != nil {
		item := *msg.Attachment
		item.SourceChatID = r.groupID
		item.SourceThreadID = msg.ThreadID
		item.MessageID = msg.MessageID
		item.Edited = msg.Edited
		if err := r.aggregator.Absorb(ctx, msg.AlbumID, item, domain.Destination{ChatID: userID}); err != nil {
			r.fail("outbound", userID, err)
			r.notify(ctx, r.groupID, msg.ThreadID, NoticeDeliveryFailed)
		}
		return
	}

	res := r.api.CopyMessage(ctx, userID, 0, r.groupID, msg.MessageID)
	if !res.OK {
		r.fail("outbound", userID, res.Err())
		// staff may see the platform's reason, end users never do
		r.notify(ctx, r.groupID, msg.ThreadID, NoticeDeliveryFailed+": "+res.Description)
		return
	}
	r.metrics.Relayed.WithLabelValues("outbound", "ok").Inc()

	r.acks.Acknowledge(ctx, domain.ReactionTarget{ChatID: r.groupID, MessageID: msg.MessageID, ThreadID: msg.ThreadID}, msg.Edited)
	r.acks.Acknowledge(ctx, domain.ReactionTarget{ChatID: userID, MessageID: res.MessageID()}, msg.Edited)
}

// CompleteVerification replays the message that triggered the challenge
// through the normal inbound path and confirms it to the user once delivered.
// A failed replay leaves the user with the retry-later notice only.
func (r *Relay) CompleteVerification(ctx context.Context, userID int64, pendingMessageID int) {
	if pendingMessageID == 0 {
		r.notify(ctx, userID, 0, NoticeVerifiedNoMsg)
		return
	}

	profile := domain.Profile{UserID: userID}
	if chat, res := r.api.GetChat(ctx, userID); res.OK {
		profile = domain.NewProfile(userID, chat.FirstName, chat.LastName, chat.Username)
	} else {
		r.logger.Warn("Failed to fetch profile for replay", zap.Int64("user_id", userID), zap.Error(res.Err()))
	}

	if r.inbound(ctx, InboundMessage{Profile: profile, MessageID: pendingMessageID}) {
		r.notify(ctx, userID, 0, NoticeVerified)
	}
}

// batchDelivered acknowledges every source fragment and every delivered copy
func (r *Relay) batchDelivered(ctx context.Context, batch domain.Batch, delivered []int) {
	direction := "outbound"
	if batch.Destination.ChatID == r.groupID {
		direction = "inbound"
	}
	r.metrics.Relayed.WithLabelValues(direction, "ok").Inc()

	for _, item := range batch.Items {
		r.acks.Acknowledge(ctx, domain.ReactionTarget{
			ChatID:    item.SourceChatID,
			MessageID: item.MessageID,
			ThreadID:  item.SourceThreadID,
		}, item.Edited)
	}
	edited := batch.Edited()
	for _, id := range delivered {
		r.acks.Acknowledge(ctx, domain.ReactionTarget{
			ChatID:    batch.Destination.ChatID,
			MessageID: id,
			ThreadID:  batch.Destination.ThreadID,
		}, edited)
	}
}

func (r *Relay) fail(direction string, userID int64, err error) {
	r.metrics.Relayed.WithLabelValues(direction, "failed").Inc()
	r.logger.Error("Relay failed",
		zap.String("direction", direction),
		zap.Int64("user_id", userID),
		zap.Error(err),
	)
}

func (r *Relay) notify(ctx context.Context, chatID int64, threadID int, text string) {
	if res := r.api.SendMessage(ctx, chatID, threadID, text, nil); !res.OK {
		r.logger.Warn("Failed to send notice",
			zap.Int64("chat_id", chatID),
			zap.Error(res.Err()),
		)
	}
}
