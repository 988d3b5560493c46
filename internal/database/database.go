package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/model"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid:         false,
		ShouldSaveLocal: false,
		Logger:          log,
	}
}

// Connect establishes a Postgres connection, falling back to the SQLite file
// at SqliteFilePath (in memory when empty) if Postgres is unreachable.
func (m *Manager) Connect() error {
	var err error

	m.DB, err = m.GetPostgresDB()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		return m.fallbackToSqlite()
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}

	if err = m.SqlDB.Ping(); err != nil {
		m.Logger.Error().Err(err).Msg("Failed to validate connection, trying SQLite")
		return m.fallbackToSqlite()
	}

	m.Logger.Info().Msg("Connected to database")
	m.IsValid = true
	m.SqlDB.SetMaxOpenConns(10)
	return nil
}

// ConnectSqlite opens the SQLite database at SqliteFilePath without trying Postgres.
func (m *Manager) ConnectSqlite() error {
	return m.fallbackToSqlite()
}

func (m *Manager) fallbackToSqlite() error {
	var err error
	m.ShouldSaveLocal = true
	m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
	if err != nil || m.DB == nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive for the life of the manager.
	m.SqlDB.SetMaxOpenConns(1)
	m.IsValid = true
	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	m.Logger.Debug().
		Str("host", viper.GetString("db.host")).
		Str("port", viper.GetString("db.port")).
		Str("database", viper.GetString("db.database")).
		Msg("Connecting to Postgres DB")
	return GetPostgresDBStandalone()
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	db, err := GetSqliteDBStandalone(path)
	if err != nil {
		m.IsValid = false
		return nil, err
	}
	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	} else {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	}
	return db, nil
}

// Setup migrates the leaderboard schema.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return fmt.Errorf("db not connected")
	}

	m.Logger.Info().Msg("Migrating schema")
	if err := Migrate(m.DB); err != nil {
		m.IsValid = false
		return err
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}

// DumpMemoryToDisk vacuums the database to the given file.
func (m *Manager) DumpMemoryToDisk(path string) error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, path); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped SQLite DB to disk")
	return nil
}

// Standalone functions for direct usage without Manager

// Migrate creates or updates every table in model.DatabaseModels.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// GetPostgresDBStandalone returns a connection to the Postgres database using viper config.
func GetPostgresDBStandalone() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteDBStandalone returns a connection to a SQLite database.
// If path is empty, uses a private in-memory database.
func GetSqliteDBStandalone(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA busy_timeout = 5000;",
	}
	if path == "" {
		pragmas[1] = "PRAGMA journal_mode = MEMORY;"
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// DumpMemoryDBToDisk vacuums the database to a disk file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	// remove existing file if it exists
	if exists, err := os.Stat(sqliteFilePath); err == nil && exists != nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	err := db.Exec("VACUUM INTO ?", sqliteFilePath).Error
	if err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}

	return nil
}
