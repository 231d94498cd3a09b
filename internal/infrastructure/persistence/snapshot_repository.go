package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
	"github.com/rollout/backend/internal/infrastructure/persistence/models"
)

// GormSnapshotRepository implements rollout.SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Save upserts the snapshot for its day. Re-running the snapshot job for the
// same day overwrites the earlier figures.
func (r *GormSnapshotRepository) Save(ctx context.Context, snapshot *rollout.DailySnapshot) error {
	model := models.DailySnapshotModelFromDomain(snapshot)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_projects", "in_flight", "completed", "blocked", "paused",
			"late", "avg_risk_score", "critical_risk", "utilization_pct",
			"completed_in_day", "started_in_day", "updated_at",
		}),
	}).Create(model).Error
}

// FindByDay finds the snapshot for a specific day
func (r *GormSnapshotRepository) FindByDay(ctx context.Context, day time.Time) (*rollout.DailySnapshot, error) {
	var model models.DailySnapshotModel
	normalized := day.UTC().Truncate(24 * time.Hour)
	if err := r.db.WithContext(ctx).First(&model, "day = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRange finds snapshots with day in [from, to], oldest first
func (r *GormSnapshotRepository) FindRange(ctx context.Context, from, to time.Time) ([]rollout.DailySnapshot, error) {
	var snapshotModels []models.DailySnapshotModel
	if err := r.db.WithContext(ctx).
		Where("day >= ? AND day <= ?", from, to).
		Order("day").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	snapshots := make([]rollout.DailySnapshot, len(snapshotModels))
	for i := range snapshotModels {
		snapshots[i] = *snapshotModels[i].ToDomain()
	}
	return snapshots, nil
}

// FindLatest returns the most recent snapshot
func (r *GormSnapshotRepository) FindLatest(ctx context.Context) (*rollout.DailySnapshot, error) {
	var model models.DailySnapshotModel
	if err := r.db.WithContext(ctx).Order("day DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveProjectSnapshots upserts the per-project rows for one day.
func (r *GormSnapshotRepository) SaveProjectSnapshots(ctx context.Context, snapshots []rollout.ProjectSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	snapshotModels := make([]models.ProjectSnapshotModel, len(snapshots))
	for i := range snapshots {
		snapshotModels[i].FromDomain(&snapshots[i])
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"operator", "network", "status", "idle_days",
			"wip_points", "mrr", "risk_score", "updated_at",
		}),
	}).Create(&snapshotModels).Error
}

// FindProjectDay finds all per-project rows for a specific day
func (r *GormSnapshotRepository) FindProjectDay(ctx context.Context, day time.Time) ([]rollout.ProjectSnapshot, error) {
	var snapshotModels []models.ProjectSnapshotModel
	normalized := day.UTC().Truncate(24 * time.Hour)
	if err := r.db.WithContext(ctx).
		Where("day = ?", normalized).
		Order("operator, project_id").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	return projectSnapshotsToDomain(snapshotModels), nil
}

// FindProjectRange finds one project's rows with day in [from, to], oldest first
func (r *GormSnapshotRepository) FindProjectRange(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]rollout.ProjectSnapshot, error) {
	var snapshotModels []models.ProjectSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND day >= ? AND day <= ?", projectID, from, to).
		Order("day").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	return projectSnapshotsToDomain(snapshotModels), nil
}

func projectSnapshotsToDomain(snapshotModels []models.ProjectSnapshotModel) []rollout.ProjectSnapshot {
	snapshots := make([]rollout.ProjectSnapshot, len(snapshotModels))
	for i := range snapshotModels {
		snapshots[i] = *snapshotModels[i].ToDomain()
	}
	return snapshots
}

// DeleteOlderThan removes aggregate and per-project snapshots older than the cutoff
func (r *GormSnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("day < ?", cutoff).Delete(&models.DailySnapshotModel{})
	if result.Error != nil {
		return result.RowsAffected, result.Error
	}
	removed := result.RowsAffected
	result = r.db.WithContext(ctx).Where("day < ?", cutoff).Delete(&models.ProjectSnapshotModel{})
	return removed + result.RowsAffected, result.Error
}
