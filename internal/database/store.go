package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook/internal/config"
	"github.com/stemsi/gradebook/internal/repository"
)

// OpenDocumentStore connects the storage driver named in cfg. The returned
// close function releases the underlying connection or file.
func OpenDocumentStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.DocumentStore, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverFS, "":
		store, err := repository.NewFSDocumentRepository(cfg.SavesDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.SavesDir).Msg("Using filesystem storage")
		return store, func() {}, nil

	case config.DriverBolt:
		db, err := OpenBolt(cfg.BoltPath, log)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewBoltDocumentRepository(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case config.DriverRedis:
		rdb, err := NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisDocumentRepository(rdb), func() { rdb.Close() }, nil

	case config.DriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresDocumentRepository(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
