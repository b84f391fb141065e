package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
)

// Store is a durable key-value store for whole cache values.
//
// Load reports false when nothing has been saved under name yet; callers
// treat that the same as an empty value. Save replaces the stored value as
// a whole: a reader never observes a partially written value.
type Store interface {
	Load(ctx context.Context, name string, dest any) (bool, error)
	Save(ctx context.Context, name string, value any) error
	Close() error
}

// Open creates the store selected by the cache configuration
func Open(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendPostgres:
		db, err := NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Debug("Using postgres cache store")
		return s, nil
	case config.CacheBackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Debug("Using redis cache store", zap.String("prefix", cfg.RedisKeyPrefix))
		return NewRedisStore(client, cfg.RedisKeyPrefix), nil
	case config.CacheBackendFile, "":
		s, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		logger.Debug("Using file cache store", zap.String("dir", cfg.Dir))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
