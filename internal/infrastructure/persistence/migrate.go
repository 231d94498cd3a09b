package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/rollout/backend/internal/infrastructure/persistence/models"
)

// AutoMigrate creates or updates the schema for all rollout tables and seeds
// the sync gate singleton row.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ProjectModel{},
		&models.PauseModel{},
		&models.TaskStepModel{},
		&models.DailySnapshotModel{},
		&models.ProjectSnapshotModel{},
		&models.SyncStateModel{},
		&models.SyncRunModel{},
		&models.SyncErrorModel{},
		&models.ChangeLogModel{},
		&models.SettingModel{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	if err := db.Where(models.SyncStateModel{ID: 1}).
		FirstOrCreate(&models.SyncStateModel{ID: 1}).Error; err != nil {
		return fmt.Errorf("seeding sync state failed: %w", err)
	}
	return nil
}
