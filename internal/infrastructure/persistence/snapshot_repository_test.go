package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

func TestGormSnapshotRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	t.Run("save and find by day", func(t *testing.T) {
		snap := rollout.NewDailySnapshot(day)
		snap.TotalProjects = 50
		snap.InFlight = 30
		require.NoError(t, repo.Save(ctx, snap))

		found, err := repo.FindByDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, 50, found.TotalProjects)
	})

	t.Run("saving twice for the same day overwrites", func(t *testing.T) {
		snap := rollout.NewDailySnapshot(day)
		snap.TotalProjects = 55
		snap.AvgRiskScore = 32.5
		require.NoError(t, repo.Save(ctx, snap))

		found, err := repo.FindByDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, 55, found.TotalProjects)
		assert.InDelta(t, 32.5, found.AvgRiskScore, 0.001)

		all, err := repo.FindRange(ctx, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("range query oldest first and latest lookup", func(t *testing.T) {
		for _, offset := range []int{1, 2, 3} {
			snap := rollout.NewDailySnapshot(day.AddDate(0, 0, offset))
			snap.TotalProjects = 55 + offset
			require.NoError(t, repo.Save(ctx, snap))
		}

		snaps, err := repo.FindRange(ctx, day, day.AddDate(0, 0, 2))
		require.NoError(t, err)
		require.Len(t, snaps, 3)
		assert.True(t, snaps[0].Day.Before(snaps[2].Day))

		latest, err := repo.FindLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, 58, latest.TotalProjects)
	})

	t.Run("prune old snapshots", func(t *testing.T) {
		deleted, err := repo.DeleteOlderThan(ctx, day.AddDate(0, 0, 2))
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)
	})

	t.Run("missing day returns ErrNotFound", func(t *testing.T) {
		_, err := repo.FindByDay(ctx, day.AddDate(1, 0, 0))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormSnapshotRepositoryProjectRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	projectA := uuid.New()
	projectB := uuid.New()

	seedRow := func(d time.Time, projectID uuid.UUID, risk float64) rollout.ProjectSnapshot {
		row := rollout.NewProjectSnapshot(d, projectID)
		row.Operator = "ana"
		row.Network = "Grupo Azul"
		row.Status = rollout.StatusInProgress
		row.IdleDays = 3
		row.WIPPoints = 0.7
		row.MRR = decimal.NewFromInt(1200)
		row.RiskScore = risk
		return *row
	}

	t.Run("save and find by day", func(t *testing.T) {
		rows := []rollout.ProjectSnapshot{
			seedRow(day, projectA, 40),
			seedRow(day, projectB, 55),
		}
		require.NoError(t, repo.SaveProjectSnapshots(ctx, rows))

		found, err := repo.FindProjectDay(ctx, day)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "ana", found[0].Operator)
		assert.True(t, found[0].MRR.Equal(decimal.NewFromInt(1200)))
	})

	t.Run("same day and project overwrites", func(t *testing.T) {
		row := seedRow(day, projectA, 65)
		require.NoError(t, repo.SaveProjectSnapshots(ctx, []rollout.ProjectSnapshot{row}))

		found, err := repo.FindProjectDay(ctx, day)
		require.NoError(t, err)
		require.Len(t, found, 2)
		for _, r := range found {
			if r.ProjectID == projectA {
				assert.InDelta(t, 65, r.RiskScore, 0.001)
			}
		}
	})

	t.Run("project range oldest first", func(t *testing.T) {
		require.NoError(t, repo.SaveProjectSnapshots(ctx, []rollout.ProjectSnapshot{
			seedRow(day.AddDate(0, 0, 1), projectA, 42),
		}))

		rows, err := repo.FindProjectRange(ctx, projectA, day, day.AddDate(0, 0, 7))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.True(t, rows[0].Day.Before(rows[1].Day))
	})

	t.Run("prune removes both tables", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, rollout.NewDailySnapshot(day)))

		deleted, err := repo.DeleteOlderThan(ctx, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted) // one aggregate plus two project rows

		rows, err := repo.FindProjectRange(ctx, projectA, day.AddDate(0, 0, -7), day.AddDate(0, 0, 7))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestGormSettingRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSettingRepository(db)
	ctx := context.Background()

	t.Run("upsert inserts then replaces", func(t *testing.T) {
		s, err := rollout.NewSetting(rollout.SettingCapacityCeiling, "30")
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, s))

		s2, err := rollout.NewSetting(rollout.SettingCapacityCeiling, "35")
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, s2))

		found, err := repo.FindByKey(ctx, rollout.SettingCapacityCeiling)
		require.NoError(t, err)
		assert.Equal(t, "35", found.Value)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, rollout.SettingCapacityCeiling))
		_, err := repo.FindByKey(ctx, rollout.SettingCapacityCeiling)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, rollout.SettingCapacityCeiling), shared.ErrNotFound)
	})
}
