package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/config"
	"github.com/sloperunner/engine/internal/storage"
	filestorage "github.com/sloperunner/engine/internal/storage/file"
	"github.com/sloperunner/engine/internal/storage/memory"
	pgstorage "github.com/sloperunner/engine/internal/storage/postgres"
	redisstorage "github.com/sloperunner/engine/internal/storage/redis"
	sqlitestorage "github.com/sloperunner/engine/internal/storage/sqlite"
)

// openStore creates the configured store and initializes it.
func openStore(storageCfg config.StorageConfig, logger zerolog.Logger) (storage.Store, error) {
	store, err := createStore(storageCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Init(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize %s store: %w", storageCfg.Type, err)
	}
	return store, nil
}

func createStore(storageCfg config.StorageConfig, logger zerolog.Logger) (storage.Store, error) {
	switch storageCfg.Type {
	case "postgres":
		store, err := pgstorage.New(pgstorage.Config{
			Fallback:     storageCfg.Postgres.Fallback,
			FallbackPath: storageCfg.SQLite.Path,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		logger.Info().Str("location", store.Location()).Msg("Postgres store created")
		return store, nil

	case "sqlite":
		store, err := sqlitestorage.New(sqlitestorage.Config{
			Path:         storageCfg.SQLite.Path,
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		logger.Info().Str("location", store.Location()).Msg("SQLite store created")
		return store, nil

	case "redis":
		store := redisstorage.New(redisstorage.Config{
			Address:  storageCfg.Redis.Address,
			Password: storageCfg.Redis.Password,
			DB:       storageCfg.Redis.DB,
			Key:      storageCfg.Redis.Key,
		}, logger)
		logger.Info().Str("location", store.Location()).Msg("Redis store created")
		return store, nil

	case "memory":
		logger.Info().Msg("Memory store created")
		return memory.New(storageCfg.Memory), nil

	case "file", "":
		store := filestorage.New(filestorage.Config{Path: storageCfg.File.Path}, logger)
		logger.Info().Str("location", store.Location()).Msg("File store created")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
