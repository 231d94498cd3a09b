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

// GormProjectRepository implements rollout.ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create persists a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *rollout.Project) error {
	model := models.ProjectModelFromDomain(project)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists changes to an existing project
func (r *GormProjectRepository) Update(ctx context.Context, project *rollout.Project) error {
	model := models.ProjectModelFromDomain(project)
	result := r.db.WithContext(ctx).Model(&models.ProjectModel{}).
		Where("id = ?", project.ID).
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

// FindByID finds a project by its ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*rollout.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTaskRef finds a project by its tracker task reference
func (r *GormProjectRepository) FindByTaskRef(ctx context.Context, taskRef string) (*rollout.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "task_ref = ?", taskRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStoreCode finds a project by its human-facing store code
func (r *GormProjectRepository) FindByStoreCode(ctx context.Context, storeCode string) (*rollout.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "store_code = ?", storeCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all projects matching the filter
func (r *GormProjectRepository) FindAll(ctx context.Context, filter shared.Filter) ([]rollout.Project, error) {
	var projectModels []models.ProjectModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProjectModel{}), filter)
	if err := query.Find(&projectModels).Error; err != nil {
		return nil, err
	}
	return toDomainProjects(projectModels), nil
}

// FindByStatus finds projects in the given status
func (r *GormProjectRepository) FindByStatus(ctx context.Context, status rollout.ProjectStatus, filter shared.Filter) ([]rollout.Project, error) {
	var projectModels []models.ProjectModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ProjectModel{}).Where("status = ?", status),
		filter,
	)
	if err := query.Find(&projectModels).Error; err != nil {
		return nil, err
	}
	return toDomainProjects(projectModels), nil
}

// FindInFlight finds projects that are neither completed nor unstarted.
// A project with a manual finish date counts as completed even when the
// tracker still reports it open.
func (r *GormProjectRepository) FindInFlight(ctx context.Context) ([]rollout.Project, error) {
	var projectModels []models.ProjectModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND manual_finished_at IS NULL", rollout.StatusInProgress).
		Find(&projectModels).Error; err != nil {
		return nil, err
	}
	return toDomainProjects(projectModels), nil
}

// FindByOperator finds projects assigned to an operator
func (r *GormProjectRepository) FindByOperator(ctx context.Context, operator string, filter shared.Filter) ([]rollout.Project, error) {
	var projectModels []models.ProjectModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ProjectModel{}).Where("operator = ?", operator),
		filter,
	)
	if err := query.Find(&projectModels).Error; err != nil {
		return nil, err
	}
	return toDomainProjects(projectModels), nil
}

// FindCompletedBetween finds projects whose effective finish falls in [from, to).
// The manual finish wins over the reported closure when both exist.
func (r *GormProjectRepository) FindCompletedBetween(ctx context.Context, from, to time.Time) ([]rollout.Project, error) {
	var projectModels []models.ProjectModel
	if err := r.db.WithContext(ctx).
		Where("COALESCE(manual_finished_at, reported_closed_at) >= ? AND COALESCE(manual_finished_at, reported_closed_at) < ?", from, to).
		Where("status = ? OR manual_finished_at IS NOT NULL", rollout.StatusDone).
		Find(&projectModels).Error; err != nil {
		return nil, err
	}
	return toDomainProjects(projectModels), nil
}

// CountByStatus returns project counts grouped by status
func (r *GormProjectRepository) CountByStatus(ctx context.Context) (map[rollout.ProjectStatus]int, error) {
	type row struct {
		Status rollout.ProjectStatus
		Total  int
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.ProjectModel{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[rollout.ProjectStatus]int, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Total
	}
	return counts, nil
}

// Count returns the total number of projects
func (r *GormProjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProjectModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a project and its dependent rows
func (r *GormProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.PauseModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.TaskStepModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ProjectModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormProjectRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.OrderBy != "" {
		order := ValidateSortField(filter.OrderBy, ProjectSortFields, "created_at")
		if filter.Desc {
			order += " DESC"
		}
		query = query.Order(order)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query
}

func toDomainProjects(projectModels []models.ProjectModel) []rollout.Project {
	projects := make([]rollout.Project, len(projectModels))
	for i := range projectModels {
		projects[i] = *projectModels[i].ToDomain()
	}
	return projects
}
