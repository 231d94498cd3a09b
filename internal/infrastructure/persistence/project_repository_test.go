package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func newStoredProject(t *testing.T, repo *GormProjectRepository, taskRef, name string) *rollout.Project {
	t.Helper()
	p, err := rollout.NewProject(taskRef, name)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestGormProjectRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	t.Run("creates and finds by id", func(t *testing.T) {
		p := newStoredProject(t, repo, "task-1", "Loja Centro")

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "task-1", found.TaskRef)
		assert.Equal(t, "Loja Centro", found.Name)
		assert.Equal(t, rollout.StatusInProgress, found.Status)
		assert.Equal(t, rollout.DefaultContractDays, found.ContractDays)
	})

	t.Run("finds by task ref", func(t *testing.T) {
		newStoredProject(t, repo, "task-2", "Loja Norte")

		found, err := repo.FindByTaskRef(ctx, "task-2")
		require.NoError(t, err)
		assert.Equal(t, "Loja Norte", found.Name)
	})

	t.Run("returns ErrNotFound for missing project", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByTaskRef(ctx, "missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormProjectRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	t.Run("persists field changes", func(t *testing.T) {
		p := newStoredProject(t, repo, "task-u1", "Loja Sul")

		p.Operator = "ana"
		p.MonthlyValue = decimal.NewFromInt(1200)
		p.Status = rollout.StatusBlocked

		require.NoError(t, repo.Update(ctx, p))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "ana", found.Operator)
		assert.True(t, decimal.NewFromInt(1200).Equal(found.MonthlyValue))
		assert.Equal(t, rollout.StatusBlocked, found.Status)
	})

	t.Run("clears nullable fields", func(t *testing.T) {
		p := newStoredProject(t, repo, "task-u2", "Loja Leste")
		finish := time.Now().UTC()
		p.ManualFinishedAt = &finish
		require.NoError(t, repo.Update(ctx, p))

		p.ManualFinishedAt = nil
		require.NoError(t, repo.Update(ctx, p))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, found.ManualFinishedAt)
	})

	t.Run("returns ErrNotFound for missing project", func(t *testing.T) {
		p, err := rollout.NewProject("task-ghost", "Ghost")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, p), shared.ErrNotFound)
	})
}

func TestGormProjectRepository_InFlightAndCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	inFlight := newStoredProject(t, repo, "t-1", "A")

	done := newStoredProject(t, repo, "t-2", "B")
	done.Status = rollout.StatusDone
	require.NoError(t, repo.Update(ctx, done))

	// manual finish removes a project from WIP even with an open status
	manual := newStoredProject(t, repo, "t-3", "C")
	finish := time.Now().UTC()
	manual.ManualFinishedAt = &finish
	require.NoError(t, repo.Update(ctx, manual))

	t.Run("FindInFlight excludes done and manually finished", func(t *testing.T) {
		projects, err := repo.FindInFlight(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, inFlight.ID, projects[0].ID)
	})

	t.Run("CountByStatus groups correctly", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[rollout.StatusInProgress])
		assert.Equal(t, 1, counts[rollout.StatusDone])
	})

	t.Run("Count returns total", func(t *testing.T) {
		total, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})
}

func TestGormProjectRepository_FindCompletedBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	monthStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	// closed by the tracker inside the window
	closed := newStoredProject(t, repo, "c-1", "Closed")
	closed.Status = rollout.StatusDone
	closedAt := monthStart.AddDate(0, 0, 10)
	closed.ReportedClosedAt = &closedAt
	require.NoError(t, repo.Update(ctx, closed))

	// manual finish inside the window overrides a tracker closure outside it
	manual := newStoredProject(t, repo, "c-2", "Manual")
	trackerClose := monthEnd.AddDate(0, 0, 5)
	manualFinish := monthStart.AddDate(0, 0, 20)
	manual.ReportedClosedAt = &trackerClose
	manual.ManualFinishedAt = &manualFinish
	require.NoError(t, repo.Update(ctx, manual))

	// closed outside the window
	outside := newStoredProject(t, repo, "c-3", "Outside")
	outside.Status = rollout.StatusDone
	outsideAt := monthStart.AddDate(0, -1, 0)
	outside.ReportedClosedAt = &outsideAt
	require.NoError(t, repo.Update(ctx, outside))

	projects, err := repo.FindCompletedBetween(ctx, monthStart, monthEnd)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	refs := []string{projects[0].TaskRef, projects[1].TaskRef}
	assert.Contains(t, refs, "c-1")
	assert.Contains(t, refs, "c-2")
}

func TestGormProjectRepository_FindByOperatorAndFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	for i, name := range []string{"P1", "P2", "P3"} {
		p := newStoredProject(t, repo, name, name)
		if i < 2 {
			p.Operator = "bruno"
			require.NoError(t, repo.Update(ctx, p))
		}
	}

	projects, err := repo.FindByOperator(ctx, "bruno", shared.Filter{OrderBy: "name"})
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "P1", projects[0].Name)

	limited, err := repo.FindAll(ctx, shared.Filter{Limit: 1, OrderBy: "name", Desc: true})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "P3", limited[0].Name)
}

func TestGormProjectRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProjectRepository(db)
	pauseRepo := NewGormPauseRepository(db)
	stepRepo := NewGormStepRepository(db)
	ctx := context.Background()

	p := newStoredProject(t, repo, "d-1", "Doomed")

	pause, err := rollout.NewPause(p.ID, time.Now().UTC(), "aguarda link")
	require.NoError(t, err)
	require.NoError(t, pauseRepo.Create(ctx, pause))

	step := &rollout.TaskStep{BaseEntity: shared.NewBaseEntity(), TaskRef: "d-step", ProjectID: p.ID, Stage: "VISTORIA"}
	require.NoError(t, stepRepo.Upsert(ctx, step))

	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err = repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	pauses, err := pauseRepo.FindByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, pauses)

	steps, err := stepRepo.FindByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), shared.ErrNotFound)
}
