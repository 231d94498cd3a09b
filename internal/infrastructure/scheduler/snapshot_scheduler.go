// Package scheduler runs the background jobs of the rollout board: the
// daily portfolio snapshot and the periodic tracker sync.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/infrastructure/config"
)

// SnapshotTaker captures the daily portfolio snapshot and prunes old ones.
// Implemented by the analytics snapshot service.
type SnapshotTaker interface {
	CaptureDaily(ctx context.Context, day time.Time) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DailySnapshotScheduler captures one portfolio snapshot per UTC day, at or
// after the configured hour. Missed hours are caught up on the next check,
// so a restart after the snapshot hour still produces that day's snapshot.
type DailySnapshotScheduler struct {
	config config.SchedulerConfig
	taker  SnapshotTaker
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string

	// now is swappable for tests.
	now func() time.Time
}

// NewDailySnapshotScheduler creates a snapshot scheduler.
func NewDailySnapshotScheduler(cfg config.SchedulerConfig, taker SnapshotTaker, logger *zap.Logger) (*DailySnapshotScheduler, error) {
	if cfg.SnapshotHourUTC < 0 || cfg.SnapshotHourUTC > 23 {
		return nil, ErrInvalidConfig
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailySnapshotScheduler{
		config: cfg,
		taker:  taker,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start launches the check loop. Idempotent.
func (s *DailySnapshotScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("snapshot scheduler started",
		zap.Int("snapshot_hour_utc", s.config.SnapshotHourUTC),
		zap.Duration("check_interval", s.config.CheckInterval),
	)
	return nil
}

// Stop halts the loop and waits for an in-flight capture to finish or the
// context to expire.
func (s *DailySnapshotScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("snapshot scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DailySnapshotScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndCapture(ctx)
		}
	}
}

// checkAndCapture runs the snapshot when today's has not been taken yet and
// the configured hour has passed.
func (s *DailySnapshotScheduler) checkAndCapture(ctx context.Context) {
	now := s.now().UTC()
	currentDate := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == currentDate
	s.mu.Unlock()

	if alreadyRan || now.Hour() < s.config.SnapshotHourUTC {
		return
	}

	s.mu.Lock()
	s.lastRunDate = currentDate
	s.mu.Unlock()

	jobCtx := ctx
	var cancel context.CancelFunc
	if s.config.JobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	s.logger.Info("capturing daily snapshot", zap.String("day", currentDate))
	if err := s.taker.CaptureDaily(jobCtx, now); err != nil {
		s.logger.Error("daily snapshot failed", zap.String("day", currentDate), zap.Error(err))
		// Allow a retry on the next check.
		s.mu.Lock()
		s.lastRunDate = ""
		s.mu.Unlock()
		return
	}

	if s.config.SnapshotKeepDays > 0 {
		cutoff := now.AddDate(0, 0, -s.config.SnapshotKeepDays)
		removed, err := s.taker.PruneBefore(jobCtx, cutoff)
		if err != nil {
			s.logger.Error("snapshot pruning failed", zap.Error(err))
			return
		}
		if removed > 0 {
			s.logger.Info("pruned old snapshots", zap.Int64("removed", removed))
		}
	}
}
