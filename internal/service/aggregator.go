package service

import (
	"context"
	"fmt"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"
	"topicrelay/internal/repository"

	"go.uber.org/zap"
)

const (
	// FlushDelay is how long a batch collects fragments before it is sent
	FlushDelay = 2 * time.Second
	// BatchTTL bounds a buffer that never flushes
	BatchTTL = 60 * time.Second
)

// FlushHook is called after a batch was delivered with the ids of the delivered messages
type FlushHook func(ctx context.Context, batch domain.Batch, delivered []int)

// Aggregator reassembles album fragments into one media group send.
//
// Every fragment schedules its own flush. The buffer is consumed by the first
// flush that delivers it, so the remaining timers find nothing and do nothing.
// A fragment arriving after that starts a new batch.
type Aggregator struct {
	batches   *repository.BatchRepo
	api       *platform.Client
	scheduler Scheduler
	metrics   *metrics.Metrics
	logger    *zap.Logger

	delay     time.Duration
	locks     keyedMutex
	onFlushed FlushHook
}

// NewAggregator creates a new attachment aggregator
func NewAggregator(
	batches *repository.BatchRepo,
	api *platform.Client,
	scheduler Scheduler,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		batches:   batches,
		api:       api,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
		delay:     FlushDelay,
	}
}

// SetFlushDelay overrides FlushDelay
func (g *Aggregator) SetFlushDelay(d time.Duration) {
	g.delay = d
}

// OnFlushed registers the hook run after each delivered batch
func (g *Aggregator) OnFlushed(hook FlushHook) {
	g.onFlushed = hook
}

// Absorb buffers one fragment of groupID and schedules a flush towards dest
func (g *Aggregator) Absorb(ctx context.Context, groupID string, item domain.Attachment, dest domain.Destination) error {
	if !item.Kind.Valid() {
		return fmt.Errorf("absorb %s: unsupported attachment kind %q", groupID, item.Kind)
	}

	unlock := g.locks.lock(groupID)
	batch, _, err := g.batches.Get(ctx, groupID)
	if err == nil {
		if len(batch.Items) == 0 {
			batch.Destination = dest
		}
		batch.Items = append(batch.Items, item)
		err = g.batches.Save(ctx, groupID, batch, BatchTTL)
	}
	unlock()
	if err != nil {
		return fmt.Errorf("buffer fragment of %s: %w", groupID, err)
	}

	g.scheduler.After(g.delay, "batch-flush", func(ctx context.Context) {
		g.Flush(ctx, groupID)
	})
	return nil
}

// Flush sends whatever is buffered for groupID as one media group.
// An empty or missing buffer means another flush already delivered it.
func (g *Aggregator) Flush(ctx context.Context, groupID string) {
	unlock := g.locks.lock(groupID)
	defer unlock()

	batch, found, err := g.batches.Get(ctx, groupID)
	if err != nil {
		g.logger.Error("Failed to read batch", zap.String("group_id", groupID), zap.Error(err))
		return
	}
	if !found || len(batch.Items) == 0 {
		g.metrics.Batches.WithLabelValues("empty").Inc()
		return
	}

	items := batch.Ordered()
	media := make([]platform.InputMedia, 0, len(items))
	for _, item := range items {
		mediaType, err := item.Kind.MediaType()
		if err != nil {
			g.logger.Warn("Skipping fragment", zap.String("group_id", groupID), zap.Error(err))
			continue
		}
		media = append(media, platform.InputMedia{Type: mediaType, Media: item.FileID, Caption: item.Caption})
	}

	res := g.api.SendMediaGroup(ctx, batch.Destination.ChatID, batch.Destination.ThreadID, media)
	if !res.OK {
		// the buffer stays until a later timer retries it or it expires
		g.metrics.Batches.WithLabelValues("failed").Inc()
		g.logger.Error("Failed to send batch",
			zap.String("group_id", groupID),
			zap.Int("items", len(media)),
			zap.Error(res.Err()),
		)
		return
	}

	if err := g.batches.Delete(ctx, groupID); err != nil {
		g.logger.Warn("Failed to delete flushed batch", zap.String("group_id", groupID), zap.Error(err))
	}
	g.metrics.Batches.WithLabelValues("sent").Inc()
	g.logger.Info("Batch flushed",
		zap.String("group_id", groupID),
		zap.Int("items", len(media)),
		zap.Int64("chat_id", batch.Destination.ChatID),
	)

	if g.onFlushed != nil {
		batch.Items = items
		g.onFlushed(ctx, batch, res.MessageIDs())
	}
}
