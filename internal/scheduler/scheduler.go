// Package scheduler drives periodic and on-demand store refresh cycles.
// REST callers enqueue a refresh command and return immediately; the
// worker loop is the only goroutine that starts cycles.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"screener-systemv1/internal/store"

	"github.com/go-co-op/gocron"
)

// Scheduler manages the periodic refresh job and the async trigger queue.
type Scheduler struct {
	cron    *gocron.Scheduler
	store   *store.Store
	log     *slog.Logger
	trigger chan struct{}
}

// New creates a scheduler refreshing the store every interval.
func New(st *store.Store, interval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		store:   st,
		log:     log,
		trigger: make(chan struct{}, 1),
	}
	s.cron.Every(interval).Do(s.TriggerRefresh)
	return s
}

// Start launches the periodic job and the trigger worker. The worker
// runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.StartAsync()
	s.log.Info("refresh scheduler started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.trigger:
				s.store.RefreshAll(ctx)
			}
		}
	}()
}

// TriggerRefresh enqueues an asynchronous refresh cycle and returns
// immediately. A trigger arriving while one is already queued coalesces
// into it.
func (s *Scheduler) TriggerRefresh() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the periodic job.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("refresh scheduler stopped")
}
