package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
	"github.com/rollout/backend/internal/infrastructure/persistence/models"
)

// syncStateID is the fixed primary key of the singleton gate row.
const syncStateID = 1

// GormSyncRepository implements rollout.SyncRepository using GORM
type GormSyncRepository struct {
	db *gorm.DB
}

// NewGormSyncRepository creates a new GormSyncRepository
func NewGormSyncRepository(db *gorm.DB) *GormSyncRepository {
	return &GormSyncRepository{db: db}
}

// TryStart atomically flips the gate from idle to running with a single
// conditional UPDATE. Concurrent callers race on the row; exactly one wins.
// A gate held longer than staleAfter belongs to a crashed sync and is taken
// over.
func (r *GormSyncRepository) TryStart(ctx context.Context, now time.Time, staleAfter time.Duration) (bool, error) {
	if err := r.ensureStateRow(ctx); err != nil {
		return false, err
	}
	cutoff := now.Add(-staleAfter)
	result := r.db.WithContext(ctx).Model(&models.SyncStateModel{}).
		Where("id = ? AND (in_progress = ? OR started_at IS NULL OR started_at < ?)", syncStateID, false, cutoff).
		Updates(map[string]interface{}{
			"in_progress": true,
			"started_at":  now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FinishSync releases the gate and records the outcome
func (r *GormSyncRepository) FinishSync(ctx context.Context, now time.Time, lastError string) error {
	return r.db.WithContext(ctx).Model(&models.SyncStateModel{}).
		Where("id = ?", syncStateID).
		Updates(map[string]interface{}{
			"in_progress":  false,
			"last_sync_at": now,
			"last_error":   lastError,
			"updated_at":   now,
		}).Error
}

// GetState returns the current gate state
func (r *GormSyncRepository) GetState(ctx context.Context) (*rollout.SyncState, error) {
	if err := r.ensureStateRow(ctx); err != nil {
		return nil, err
	}
	var model models.SyncStateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", syncStateID).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormSyncRepository) ensureStateRow(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where(models.SyncStateModel{ID: syncStateID}).
		FirstOrCreate(&models.SyncStateModel{ID: syncStateID}).Error
}

// CreateRun persists a new sync run record
func (r *GormSyncRepository) CreateRun(ctx context.Context, run *rollout.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdateRun persists changes to a sync run record
func (r *GormSyncRepository) UpdateRun(ctx context.Context, run *rollout.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	result := r.db.WithContext(ctx).Model(&models.SyncRunModel{}).
		Where("id = ?", run.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindRun finds a run by ID
func (r *GormSyncRepository) FindRun(ctx context.Context, id uuid.UUID) (*rollout.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListRuns returns the most recent runs, newest first
func (r *GormSyncRepository) ListRuns(ctx context.Context, limit int) ([]rollout.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runModels []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}
	runs := make([]rollout.SyncRun, len(runModels))
	for i := range runModels {
		runs[i] = *runModels[i].ToDomain()
	}
	return runs, nil
}

// PruneRuns deletes all but the newest keep runs along with their errors
func (r *GormSyncRepository) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var keepIDs []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.SyncRunModel{}).
		Order("started_at DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error; err != nil {
		return 0, err
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id NOT IN ?", keepIDs).Delete(&models.SyncErrorModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id NOT IN ?", keepIDs).Delete(&models.SyncRunModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// AddError records an item-level failure for a run
func (r *GormSyncRepository) AddError(ctx context.Context, syncErr *rollout.SyncError) error {
	model := &models.SyncErrorModel{}
	model.FromDomain(syncErr)
	return r.db.WithContext(ctx).Create(model).Error
}

// ListErrors returns the errors captured for a run
func (r *GormSyncRepository) ListErrors(ctx context.Context, runID uuid.UUID) ([]rollout.SyncError, error) {
	var errorModels []models.SyncErrorModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at").
		Find(&errorModels).Error; err != nil {
		return nil, err
	}
	syncErrors := make([]rollout.SyncError, len(errorModels))
	for i := range errorModels {
		syncErrors[i] = *errorModels[i].ToDomain()
	}
	return syncErrors, nil
}

// AddChanges records field-change audit entries
func (r *GormSyncRepository) AddChanges(ctx context.Context, changes []rollout.ChangeLog) error {
	if len(changes) == 0 {
		return nil
	}
	changeModels := make([]models.ChangeLogModel, len(changes))
	for i := range changes {
		changeModels[i].FromDomain(&changes[i])
	}
	return r.db.WithContext(ctx).Create(&changeModels).Error
}

// ListChangesByProject returns the audit trail for a project, newest first
func (r *GormSyncRepository) ListChangesByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]rollout.ChangeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var changeModels []models.ChangeLogModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&changeModels).Error; err != nil {
		return nil, err
	}
	changes := make([]rollout.ChangeLog, len(changeModels))
	for i := range changeModels {
		changes[i] = *changeModels[i].ToDomain()
	}
	return changes, nil
}
