package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/traceforge/traceforge/pkg/trace"
)

// Config contains configuration for the retention sweeper.
type Config struct {
	// MaxAge removes records older than this duration.
	// 0 means keep records forever.
	MaxAge time.Duration

	// MaxCount keeps at most this many records per kind, oldest removed
	// first. 0 means unlimited.
	MaxCount int64

	// Schedule is a cron expression for automatic sweeps.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:   90 * 24 * time.Hour,
		Schedule: "0 3 * * *",
	}
}

// Sweeper applies retention limits to a storage backend. Pointing it at a
// storage manager sweeps the entire backend topology in one call.
type Sweeper struct {
	store     trace.Backend
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewSweeper creates a retention sweeper over the given store.
func NewSweeper(store trace.Backend, config *Config) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Sweeper{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "storage.retention"),
	}
	s.scheduler = NewScheduler(s)
	return s
}

// Sweep runs one retention pass and returns the number of records removed.
// With no limits configured it is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.config.MaxAge <= 0 && s.config.MaxCount <= 0 {
		s.logger.Debug("no retention limits configured, skipping sweep")
		return 0, nil
	}

	removed, err := s.store.Cleanup(ctx, trace.CleanupOptions{
		MaxAge:   s.config.MaxAge,
		MaxCount: s.config.MaxCount,
	})
	if err != nil {
		s.logger.Error("retention sweep failed",
			"max_age", s.config.MaxAge,
			"max_count", s.config.MaxCount,
			"error", err,
		)
		return removed, err
	}

	if removed > 0 {
		s.logger.Info("retention sweep completed",
			"removed_count", removed,
			"max_age", s.config.MaxAge,
			"max_count", s.config.MaxCount,
		)
	} else {
		s.logger.Debug("retention sweep completed, no records removed")
	}
	return removed, nil
}

// Start starts the automatic sweep scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	return s.scheduler.Start(ctx)
}

// Stop stops the automatic sweep scheduler.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// NextSweep returns the time of the next scheduled sweep.
func (s *Sweeper) NextSweep() *time.Time {
	return s.scheduler.NextRun()
}
