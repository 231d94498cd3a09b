package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/infrastructure/config"
)

// NarrativeCacheFactory creates narrative caches based on configuration.
type NarrativeCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// NarrativeCacheFactoryOption is a functional option for the factory.
type NarrativeCacheFactoryOption func(*NarrativeCacheFactory)

// WithLogger sets the logger for the factory.
func WithLogger(logger *zap.Logger) NarrativeCacheFactoryOption {
	return func(f *NarrativeCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) NarrativeCacheFactoryOption {
	return func(f *NarrativeCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewNarrativeCacheFactory creates a new factory.
func NewNarrativeCacheFactory(cfg config.RedisConfig, opts ...NarrativeCacheFactoryOption) *NarrativeCacheFactory {
	f := &NarrativeCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateCache creates a narrative cache. When Redis is enabled in the
// configuration it is tried first; on failure the factory falls back to the
// in-memory cache unless fallback is disabled.
func (f *NarrativeCacheFactory) CreateCache() (NarrativeCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory narrative cache")
		return NewInMemoryNarrativeCache(f.redisConfig.TTL), nil
	}

	cache, err := NewRedisNarrativeCache(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis narrative cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for narrative cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory narrative cache. "+
		"Narratives will be recomputed per instance.",
		zap.Error(err),
	)
	return NewInMemoryNarrativeCache(f.redisConfig.TTL), nil
}
