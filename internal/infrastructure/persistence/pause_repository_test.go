package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

func TestGormPauseRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPauseRepository(db)
	projectRepo := NewGormProjectRepository(db)
	ctx := context.Background()

	project := newStoredProject(t, projectRepo, "pp-1", "Loja Oeste")
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("creates and lists pauses ordered by start", func(t *testing.T) {
		second, err := rollout.NewPause(project.ID, base.AddDate(0, 0, 5), "reforma")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, second))

		first, err := rollout.NewPause(project.ID, base, "aguardando documentação")
		require.NoError(t, err)
		end := base.AddDate(0, 0, 2)
		require.NoError(t, first.Close(end))
		require.NoError(t, repo.Create(ctx, first))

		pauses, err := repo.FindByProject(ctx, project.ID)
		require.NoError(t, err)
		require.Len(t, pauses, 2)
		assert.Equal(t, base, pauses[0].StartAt.UTC())
		assert.False(t, pauses[0].IsOpen())
		assert.True(t, pauses[1].IsOpen())
	})

	t.Run("finds the open pause", func(t *testing.T) {
		open, err := repo.FindOpenByProject(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, "reforma", open.Reason)
	})

	t.Run("closing removes it from open lookup", func(t *testing.T) {
		open, err := repo.FindOpenByProject(ctx, project.ID)
		require.NoError(t, err)

		require.NoError(t, open.Close(open.StartAt.AddDate(0, 0, 3)))
		require.NoError(t, repo.Update(ctx, open))

		_, err = repo.FindOpenByProject(ctx, project.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("counts projects with open pauses", func(t *testing.T) {
		other := newStoredProject(t, projectRepo, "pp-2", "Loja Extra")
		p1, err := rollout.NewPause(other.ID, base, "férias coletivas")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, p1))

		count, err := repo.CountOpen(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("groups by project", func(t *testing.T) {
		grouped, err := repo.FindByProjects(ctx, []uuid.UUID{project.ID})
		require.NoError(t, err)
		assert.Len(t, grouped[project.ID], 2)

		empty, err := repo.FindByProjects(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		pauses, err := repo.FindByProject(ctx, project.ID)
		require.NoError(t, err)
		require.NotEmpty(t, pauses)

		require.NoError(t, repo.Delete(ctx, pauses[0].ID))
		assert.ErrorIs(t, repo.Delete(ctx, pauses[0].ID), shared.ErrNotFound)
	})
}
