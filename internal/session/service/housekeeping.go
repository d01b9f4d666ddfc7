package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
)

// HousekeepingStats summarises cleanup runs.
type HousekeepingStats struct {
	Running      bool       `json:"running"`
	Interval     string     `json:"interval"`
	Runs         int        `json:"runs"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastRemoved  int        `json:"last_removed"`
	TotalRemoved int        `json:"total_removed"`
}

// HousekeepingService periodically removes stale snapshots and lifecycle
// records so the durable store does not accumulate dead sessions.
type HousekeepingService struct {
	Cache    *SessionCache
	Clock    clockx.Clock
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool

	mu    sync.Mutex
	stats HousekeepingStats
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(cache *SessionCache, clock clockx.Clock, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Cache:    cache,
		Clock:    clock,
		Logger:   slogx.OrDiscard(logger),
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. It runs a cleanup immediately and then
// every Interval until Stop. Starting twice is a no-op.
func (s *HousekeepingService) Start() {
	s.startOnce.Do(func() {
		ticker := s.Clock.NewTicker(s.Interval)

		s.mu.Lock()
		s.started = true
		s.stats.Running = true
		s.mu.Unlock()

		go s.run(ticker)
		s.Logger.Info("housekeeping service started", "interval", s.Interval)
	})
}

// Stop shuts the worker down and blocks until any in-progress cleanup has
// finished. Stopping a service that never started returns immediately.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		started := s.started
		s.stats.Running = false
		s.mu.Unlock()

		if started {
			<-s.doneCh
		}
		s.Logger.Info("housekeeping service stopped")
	})
}

func (s *HousekeepingService) run(ticker clockx.Ticker) {
	defer close(s.doneCh)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C():
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a cleanup pass now and returns the number of items removed.
func (s *HousekeepingService) RunOnce(ctx context.Context) int {
	removed := s.Cache.CleanupStale(ctx)
	now := s.Clock.Now()

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRunAt = &now
	s.stats.LastRemoved = removed
	s.stats.TotalRemoved += removed
	s.mu.Unlock()

	if removed > 0 {
		s.Logger.Info("housekeeping cleanup completed", "removed", removed)
	} else {
		s.Logger.Debug("housekeeping cleanup completed", "removed", removed)
	}
	return removed
}

// Stats returns a copy of the run statistics.
func (s *HousekeepingService) Stats() HousekeepingStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.Interval = s.Interval.String()
	out.LastRunAt = copyTime(s.stats.LastRunAt)
	return out
}
