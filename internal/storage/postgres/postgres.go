// Package postgres keeps the leaderboard in a PostgreSQL table through the
// GORM store, with connection settings read from the db.* config keys.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/database"
	gormstorage "github.com/sloperunner/engine/internal/storage/gorm"
	"github.com/spf13/viper"
)

// Config holds the fallback behaviour.
type Config struct {
	// Fallback switches to a local SQLite database when Postgres is unreachable.
	Fallback bool
	// FallbackPath is the SQLite file; empty keeps it in memory.
	FallbackPath string
}

// Store wraps the GORM store for PostgreSQL.
type Store struct {
	*gormstorage.Store
	manager  *database.Manager
	location string
}

// New connects to PostgreSQL and verifies the connection.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	manager := database.NewManager(logger)
	manager.SqliteFilePath = cfg.FallbackPath

	if cfg.Fallback {
		if err := manager.Connect(); err != nil {
			return nil, err
		}
	} else if err := connectStrict(manager); err != nil {
		return nil, err
	}

	location := fmt.Sprintf("postgres://%s:%s/%s",
		viper.GetString("db.host"), viper.GetString("db.port"), viper.GetString("db.database"))
	if manager.ShouldSaveLocal {
		location = "sqlite://" + cfg.FallbackPath
		if cfg.FallbackPath == "" {
			location = "sqlite://:memory:"
		}
	}

	return &Store{
		Store:    gormstorage.New(gormstorage.Dependencies{DB: manager.DB, Logger: logger}),
		manager:  manager,
		location: location,
	}, nil
}

func connectStrict(manager *database.Manager) error {
	db, err := manager.GetPostgresDB()
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to validate Postgres connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	manager.DB = db
	manager.SqlDB = sqlDB
	manager.IsValid = true
	return nil
}

// Init migrates the schema through the database manager.
func (s *Store) Init() error {
	return s.manager.Setup()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.manager.Close()
}

// Local reports whether the store fell back to SQLite.
func (s *Store) Local() bool { return s.manager.ShouldSaveLocal }

// Location names the database without credentials.
func (s *Store) Location() string { return s.location }
