package rollout

import "context"

// SettingRepository defines the interface for setting persistence
type SettingRepository interface {
	// Upsert creates or replaces the setting for its key
	Upsert(ctx context.Context, setting *Setting) error

	// FindByKey finds a setting by key
	FindByKey(ctx context.Context, key string) (*Setting, error)

	// FindAll returns all settings
	FindAll(ctx context.Context) ([]Setting, error)

	// Delete removes a setting by key
	Delete(ctx context.Context, key string) error
}
