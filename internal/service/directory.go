package service

import (
	"context"
	"fmt"
	"strconv"

	"topicrelay/internal/domain"
	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"
	"topicrelay/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Directory maintains the user↔thread bindings and repairs them when a
// thread has been deleted on the platform.
type Directory struct {
	bindings *repository.BindingRepo
	api      *platform.Client
	groupID  int64
	metrics  *metrics.Metrics
	logger   *zap.Logger

	inflight singleflight.Group
}

// NewDirectory creates a new thread directory
func NewDirectory(
	bindings *repository.BindingRepo,
	api *platform.Client,
	groupID int64,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Directory {
	return &Directory{
		bindings: bindings,
		api:      api,
		groupID:  groupID,
		metrics:  m,
		logger:   logger,
	}
}

// ResolveThread returns the user's live thread, creating or recreating it when needed.
// Concurrent calls for one user inside this process share a single resolution.
func (d *Directory) ResolveThread(ctx context.Context, p domain.Profile) (int, error) {
	v, err, _ := d.inflight.Do(strconv.FormatInt(p.UserID, 10), func() (interface{}, error) {
		return d.resolve(ctx, p)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (d *Directory) resolve(ctx context.Context, p domain.Profile) (int, error) {
	threadID, found, err := d.bindings.ThreadFor(ctx, p.UserID)
	if err != nil {
		return 0, fmt.Errorf("read binding: %w", err)
	}

	if found {
		probe := d.api.ProbeThread(ctx, d.groupID, threadID)
		switch {
		case probe.OK:
			return threadID, nil
		case probe.ThreadMissing():
			d.logger.Warn("Thread was deleted, recreating",
				zap.Int64("user_id", p.UserID),
				zap.Int("thread_id", threadID),
			)
			if err := d.bindings.Unbind(ctx, p.UserID, threadID); err != nil {
				return 0, fmt.Errorf("drop stale binding: %w", err)
			}
			d.metrics.Threads.WithLabelValues("recreated").Inc()
		default:
			// only an explicit "not found" proves deletion
			d.logger.Warn("Thread probe failed, keeping cached thread",
				zap.Int64("user_id", p.UserID),
				zap.Int("thread_id", threadID),
				zap.Error(probe.Err()),
			)
			return threadID, nil
		}
	}

	return d.create(ctx, p)
}

func (d *Directory) create(ctx context.Context, p domain.Profile) (int, error) {
	res := d.api.CreateForumTopic(ctx, d.groupID, p.ThreadTitle(), domain.ThreadIconColor)
	threadID := res.ThreadID()
	if !res.OK || threadID == 0 {
		d.metrics.Threads.WithLabelValues("failed").Inc()
		d.logger.Error("Failed to create thread",
			zap.Int64("user_id", p.UserID),
			zap.Error(res.Err()),
		)
		return 0, ErrThreadUnavailable
	}

	if err := d.bindings.Bind(ctx, p.UserID, threadID); err != nil {
		return 0, fmt.Errorf("write binding: %w", err)
	}
	d.metrics.Threads.WithLabelValues("created").Inc()

	d.logger.Info("Thread created",
		zap.Int64("user_id", p.UserID),
		zap.Int("thread_id", threadID),
	)

	if intro := d.api.SendMessage(ctx, d.groupID, threadID, p.IntroCard(), nil); !intro.OK {
		d.logger.Warn("Failed to post thread intro",
			zap.Int("thread_id", threadID),
			zap.Error(intro.Err()),
		)
	}
	return threadID, nil
}

// LookupUser finds the owner of a thread. Legacy bindings without a reverse
// entry are found by scanning forward entries and get their reverse entry backfilled.
func (d *Directory) LookupUser(ctx context.Context, threadID int) (int64, bool, error) {
	userID, found, err := d.bindings.UserFor(ctx, threadID)
	if err != nil {
		return 0, false, fmt.Errorf("read reverse entry: %w", err)
	}
	if found {
		return userID, true, nil
	}

	all, err := d.bindings.Forwards(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, b := range all {
		if b.ThreadID != threadID {
			continue
		}
		if err := d.bindings.SetReverse(ctx, threadID, b.UserID); err != nil {
			d.logger.Warn("Failed to backfill reverse entry",
				zap.Int("thread_id", threadID),
				zap.Error(err),
			)
		}
		return b.UserID, true, nil
	}
	return 0, false, nil
}
