package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

func TestGormSyncRepository_Gate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	staleAfter := time.Hour

	t.Run("first TryStart wins", func(t *testing.T) {
		ok, err := repo.TryStart(ctx, now, staleAfter)
		require.NoError(t, err)
		assert.True(t, ok)

		state, err := repo.GetState(ctx)
		require.NoError(t, err)
		assert.True(t, state.InProgress)
	})

	t.Run("second TryStart loses while gate is held", func(t *testing.T) {
		ok, err := repo.TryStart(ctx, now.Add(time.Minute), staleAfter)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("a stale gate is taken over", func(t *testing.T) {
		ok, err := repo.TryStart(ctx, now.Add(2*time.Hour), staleAfter)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("FinishSync releases the gate and records the outcome", func(t *testing.T) {
		finishedAt := now.Add(3 * time.Hour)
		require.NoError(t, repo.FinishSync(ctx, finishedAt, "tracker unreachable"))

		state, err := repo.GetState(ctx)
		require.NoError(t, err)
		assert.False(t, state.InProgress)
		assert.Equal(t, "tracker unreachable", state.LastError)
		require.NotNil(t, state.LastSyncAt)
		assert.Equal(t, finishedAt, state.LastSyncAt.UTC())

		ok, err := repo.TryStart(ctx, finishedAt.Add(time.Minute), staleAfter)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestGormSyncRepository_Runs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	t.Run("create, update and find a run", func(t *testing.T) {
		run := rollout.NewSyncRun(rollout.TriggerManual, now)
		require.NoError(t, repo.CreateRun(ctx, run))

		run.ProjectsSeen = 42
		run.ErrorCount = 1
		run.Finish(now.Add(time.Minute), nil)
		require.NoError(t, repo.UpdateRun(ctx, run))

		found, err := repo.FindRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, rollout.SyncPartial, found.Status)
		assert.Equal(t, 42, found.ProjectsSeen)
	})

	t.Run("failed runs carry the reason", func(t *testing.T) {
		run := rollout.NewSyncRun(rollout.TriggerScheduled, now.Add(time.Hour))
		require.NoError(t, repo.CreateRun(ctx, run))
		run.Finish(now.Add(2*time.Hour), errors.New("boom"))
		require.NoError(t, repo.UpdateRun(ctx, run))

		found, err := repo.FindRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, rollout.SyncFailed, found.Status)
		assert.Equal(t, "boom", found.FailureReason)
	})

	t.Run("ListRuns returns newest first", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	})

	t.Run("PruneRuns keeps the newest and drops their errors", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx, 10)
		require.NoError(t, err)
		oldest := runs[len(runs)-1]

		require.NoError(t, repo.AddError(ctx, &rollout.SyncError{
			BaseEntity: shared.NewBaseEntity(),
			RunID:      oldest.ID,
			TaskRef:    "task-x",
			Message:    "parse failure",
		}))

		deleted, err := repo.PruneRuns(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		remaining, err := repo.ListRuns(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)

		errs, err := repo.ListErrors(ctx, oldest.ID)
		require.NoError(t, err)
		assert.Empty(t, errs)
	})
}

func TestGormSyncRepository_ChangeLog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncRepository(db)
	projectRepo := NewGormProjectRepository(db)
	ctx := context.Background()

	project := newStoredProject(t, projectRepo, "cl-1", "Loja Prata")
	run := rollout.NewSyncRun(rollout.TriggerManual, time.Now().UTC())
	require.NoError(t, repo.CreateRun(ctx, run))

	changes := []rollout.ChangeLog{
		{BaseEntity: shared.NewBaseEntity(), ProjectID: project.ID, RunID: run.ID, Field: "status", OldValue: "IN_PROGRESS", NewValue: "BLOCKED"},
		{BaseEntity: shared.NewBaseEntity(), ProjectID: project.ID, RunID: run.ID, Field: "operator", OldValue: "", NewValue: "ana"},
	}
	require.NoError(t, repo.AddChanges(ctx, changes))
	require.NoError(t, repo.AddChanges(ctx, nil))

	trail, err := repo.ListChangesByProject(ctx, project.ID, 10)
	require.NoError(t, err)
	assert.Len(t, trail, 2)
}
