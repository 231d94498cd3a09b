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

// GormStepRepository implements rollout.StepRepository using GORM
type GormStepRepository struct {
	db *gorm.DB
}

// NewGormStepRepository creates a new GormStepRepository
func NewGormStepRepository(db *gorm.DB) *GormStepRepository {
	return &GormStepRepository{db: db}
}

// Upsert creates the step or updates it when the task ref already exists
func (r *GormStepRepository) Upsert(ctx context.Context, step *rollout.TaskStep) error {
	model := models.TaskStepModelFromDomain(step)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "task_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"project_id", "stage", "name", "assignee", "raw_status",
			"tracker_created_at", "start_at", "end_at",
			"total_days", "idle_days", "reopen_count", "updated_at",
		}),
	}).Create(model).Error
}

// FindByTaskRef finds a step by its tracker task reference
func (r *GormStepRepository) FindByTaskRef(ctx context.Context, taskRef string) (*rollout.TaskStep, error) {
	var model models.TaskStepModel
	if err := r.db.WithContext(ctx).First(&model, "task_ref = ?", taskRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProject finds all steps for a project ordered by creation
func (r *GormStepRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]rollout.TaskStep, error) {
	var stepModels []models.TaskStepModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&stepModels).Error; err != nil {
		return nil, err
	}
	return toDomainSteps(stepModels), nil
}

// FindByProjects finds steps for a set of projects, grouped by project
func (r *GormStepRepository) FindByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]rollout.TaskStep, error) {
	grouped := make(map[uuid.UUID][]rollout.TaskStep, len(projectIDs))
	if len(projectIDs) == 0 {
		return grouped, nil
	}
	var stepModels []models.TaskStepModel
	if err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("created_at").
		Find(&stepModels).Error; err != nil {
		return nil, err
	}
	for i := range stepModels {
		s := stepModels[i].ToDomain()
		grouped[s.ProjectID] = append(grouped[s.ProjectID], *s)
	}
	return grouped, nil
}

// FindClosedSince finds steps closed at or after the cutoff, for stage statistics
func (r *GormStepRepository) FindClosedSince(ctx context.Context, cutoff time.Time) ([]rollout.TaskStep, error) {
	var stepModels []models.TaskStepModel
	if err := r.db.WithContext(ctx).
		Where("end_at IS NOT NULL AND end_at >= ?", cutoff).
		Find(&stepModels).Error; err != nil {
		return nil, err
	}
	return toDomainSteps(stepModels), nil
}

// FindOpenByStage finds open steps in the given stage, for bottleneck views
func (r *GormStepRepository) FindOpenByStage(ctx context.Context, stage string) ([]rollout.TaskStep, error) {
	var stepModels []models.TaskStepModel
	if err := r.db.WithContext(ctx).
		Where("stage = ? AND end_at IS NULL", stage).
		Find(&stepModels).Error; err != nil {
		return nil, err
	}
	return toDomainSteps(stepModels), nil
}

// Delete removes a step
func (r *GormStepRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TaskStepModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainSteps(stepModels []models.TaskStepModel) []rollout.TaskStep {
	steps := make([]rollout.TaskStep, len(stepModels))
	for i := range stepModels {
		steps[i] = *stepModels[i].ToDomain()
	}
	return steps
}
