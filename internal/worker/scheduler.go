// Package worker runs deferred work detached from the request that scheduled it.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"topicrelay/internal/metrics"
)

// TaskTimeout bounds a single deferred task once it starts running
const TaskTimeout = 30 * time.Second

// Scheduler runs delayed tasks on their own goroutines and tracks them until
// completion, so a caller can wait for all of them before the process exits.
type Scheduler struct {
	wg      sync.WaitGroup
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{metrics: m, logger: logger}
}

// After runs fn once delay has elapsed. fn receives a context that is not
// derived from the scheduling request.
func (s *Scheduler) After(delay time.Duration, name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	s.metrics.Pending.Inc()

	go func() {
		defer s.wg.Done()
		defer s.metrics.Pending.Dec()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Deferred task panicked",
					zap.String("task", name),
					zap.Any("panic", r),
				)
			}
		}()

		if delay > 0 {
			timer := time.NewTimer(delay)
			<-timer.C
		}

		ctx, cancel := context.WithTimeout(context.Background(), TaskTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until every scheduled task has finished or ctx is done
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
