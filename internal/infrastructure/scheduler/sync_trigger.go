package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/infrastructure/config"
)

// SyncRunner starts one ingestion pass. Implemented by the sync service.
type SyncRunner interface {
	Run(ctx context.Context, trigger rollout.SyncTrigger) (*rollout.SyncRun, error)
}

// PeriodicSyncTrigger kicks off a scheduled tracker sync at a fixed
// interval. Overlap protection lives in the sync gate, so a trigger firing
// while a run is active is a no-op.
type PeriodicSyncTrigger struct {
	interval time.Duration
	runner   SyncRunner
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPeriodicSyncTrigger creates a sync trigger from configuration.
func NewPeriodicSyncTrigger(cfg config.SyncConfig, runner SyncRunner, logger *zap.Logger) (*PeriodicSyncTrigger, error) {
	if cfg.Interval <= 0 {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodicSyncTrigger{
		interval: cfg.Interval,
		runner:   runner,
		logger:   logger,
	}, nil
}

// Start launches the trigger loop. Idempotent.
func (t *PeriodicSyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("sync trigger started", zap.Duration("interval", t.interval))
	return nil
}

// Stop halts the loop and waits for an in-flight run to finish or the
// context to expire.
func (t *PeriodicSyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *PeriodicSyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.trigger(ctx)
		}
	}
}

func (t *PeriodicSyncTrigger) trigger(ctx context.Context) {
	run, err := t.runner.Run(ctx, rollout.TriggerScheduled)
	if err != nil {
		if errors.Is(err, rollout.ErrSyncAlreadyRunning) {
			t.logger.Debug("sync already in progress, skipping scheduled run")
			return
		}
		t.logger.Error("scheduled sync failed", zap.Error(err))
		return
	}
	t.logger.Info("scheduled sync finished",
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.Int("projects_seen", run.ProjectsSeen),
		zap.Int("errors", run.ErrorCount),
	)
}
