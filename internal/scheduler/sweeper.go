package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger is the interface that wraps the expired session cleanup.
type Purger interface {
	// Method PurgeExpired removes every expired session together with its purchase lines.
	//
	// It returns the number of removed sessions.
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically purges expired sessions
type Sweeper struct {
	purger  Purger
	logger  *zap.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewSweeper creates a sweeper running on the given cron schedule.
// Both standard 5-field expressions and descriptors such as "@every 10m" are accepted.
func NewSweeper(schedule string, purger Purger, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		purger:  purger,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid sweeper schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start runs the schedule in its own goroutine
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running sweep to finish or ctx to expire
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("session sweeper did not stop in time")
	}
}

// Sweep purges expired sessions once
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	purged, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("failed to purge expired sessions", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired sessions", zap.Int64("count", purged))
	}
}
