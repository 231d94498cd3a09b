package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
	"github.com/rollout/backend/internal/infrastructure/persistence/models"
)

// GormPauseRepository implements rollout.PauseRepository using GORM
type GormPauseRepository struct {
	db *gorm.DB
}

// NewGormPauseRepository creates a new GormPauseRepository
func NewGormPauseRepository(db *gorm.DB) *GormPauseRepository {
	return &GormPauseRepository{db: db}
}

// Create persists a new pause
func (r *GormPauseRepository) Create(ctx context.Context, pause *rollout.Pause) error {
	model := models.PauseModelFromDomain(pause)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to an existing pause
func (r *GormPauseRepository) Update(ctx context.Context, pause *rollout.Pause) error {
	model := models.PauseModelFromDomain(pause)
	result := r.db.WithContext(ctx).Model(&models.PauseModel{}).
		Where("id = ?", pause.ID).
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

// FindByID finds a pause by its ID
func (r *GormPauseRepository) FindByID(ctx context.Context, id uuid.UUID) (*rollout.Pause, error) {
	var model models.PauseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProject finds all pauses for a project ordered by start
func (r *GormPauseRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]rollout.Pause, error) {
	var pauseModels []models.PauseModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("start_at").
		Find(&pauseModels).Error; err != nil {
		return nil, err
	}
	return toDomainPauses(pauseModels), nil
}

// FindOpenByProject finds the open pause for a project, if any
func (r *GormPauseRepository) FindOpenByProject(ctx context.Context, projectID uuid.UUID) (*rollout.Pause, error) {
	var model models.PauseModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND end_at IS NULL", projectID).
		Order("start_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProjects finds pauses for a set of projects, grouped by project
func (r *GormPauseRepository) FindByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]rollout.Pause, error) {
	grouped := make(map[uuid.UUID][]rollout.Pause, len(projectIDs))
	if len(projectIDs) == 0 {
		return grouped, nil
	}
	var pauseModels []models.PauseModel
	if err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("start_at").
		Find(&pauseModels).Error; err != nil {
		return nil, err
	}
	for i := range pauseModels {
		p := pauseModels[i].ToDomain()
		grouped[p.ProjectID] = append(grouped[p.ProjectID], *p)
	}
	return grouped, nil
}

// CountOpen returns the number of projects with an open pause
func (r *GormPauseRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PauseModel{}).
		Where("end_at IS NULL").
		Distinct("project_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a pause
func (r *GormPauseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PauseModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainPauses(pauseModels []models.PauseModel) []rollout.Pause {
	pauses := make([]rollout.Pause, len(pauseModels))
	for i := range pauseModels {
		pauses[i] = *pauseModels[i].ToDomain()
	}
	return pauses
}
