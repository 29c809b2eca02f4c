// Package hygiene runs background maintenance over the sharing graph.
package hygiene

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"keyshelf/internal/domain"
)

// DefaultSchedule runs the grant sweep hourly.
const DefaultSchedule = "@hourly"

// Sweeper periodically removes share grants whose grantee no longer holds the
// member role. RemoveMember already prunes in the same transaction, so the
// sweep only catches rows left behind by out-of-band role changes.
type Sweeper struct {
	cron     *cron.Cron
	grants   domain.GrantRepository
	logger   *slog.Logger
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
}

// NewSweeper creates a Sweeper. An empty schedule uses DefaultSchedule.
func NewSweeper(grants domain.GrantRepository, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cron:     cron.New(),
		grants:   grants,
		logger:   logger.With("component", "grant-sweeper"),
		schedule: schedule,
		timeout:  time.Minute,
	}
}

// SweepOnce removes orphaned grants and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.grants.DeleteOrphaned(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep orphaned grants: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "orphaned grants removed", "count", n)
	}
	return n, nil
}

// Start registers the sweep on its schedule and starts the cron runner.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	id, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.Warn("scheduled grant sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.entry = id
	s.started = true
	s.cron.Start()
	s.logger.Info("grant sweeper started", "schedule", s.schedule)
	return nil
}

// Stop stops the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.started = false
	s.logger.Info("grant sweeper stopped")
}

// Next returns the next scheduled run, or the zero time when stopped.
func (s *Sweeper) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}
