package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
	"github.com/rollout/backend/internal/infrastructure/persistence/models"
)

// GormSettingRepository implements rollout.SettingRepository using GORM
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// Upsert creates or replaces the setting for its key
func (r *GormSettingRepository) Upsert(ctx context.Context, setting *rollout.Setting) error {
	model := &models.SettingModel{}
	model.FromDomain(setting)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(model).Error
}

// FindByKey finds a setting by key
func (r *GormSettingRepository) FindByKey(ctx context.Context, key string) (*rollout.Setting, error) {
	var model models.SettingModel
	if err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all settings
func (r *GormSettingRepository) FindAll(ctx context.Context) ([]rollout.Setting, error) {
	var settingModels []models.SettingModel
	if err := r.db.WithContext(ctx).Order("key").Find(&settingModels).Error; err != nil {
		return nil, err
	}
	settings := make([]rollout.Setting, len(settingModels))
	for i := range settingModels {
		settings[i] = *settingModels[i].ToDomain()
	}
	return settings, nil
}

// Delete removes a setting by key
func (r *GormSettingRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Delete(&models.SettingModel{}, "key = ?", key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
