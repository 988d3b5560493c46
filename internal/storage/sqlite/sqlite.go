// Package sqlitestorage keeps the leaderboard in a SQLite database file. It
// wraps the GORM store; the only SQLite-specific concerns are opening the file
// and the optional periodic backup via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/database"
	gormstorage "github.com/sloperunner/engine/internal/storage/gorm"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite store.
type Config struct {
	Path         string // empty keeps the database in memory
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO backups
}

// Store wraps the GORM store for SQLite-specific behavior.
type Store struct {
	*gormstorage.Store
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
	dumping  bool
}

// New opens the SQLite database and creates the store.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	db, err := database.GetSqliteDBStandalone(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	return &Store{
		Store:    gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:       db,
		cfg:      cfg,
		log:      logger.With().Str("store", "sqlite").Logger(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init migrates the table and starts the backup goroutine.
func (s *Store) Init() error {
	if err := s.Store.Init(); err != nil {
		return err
	}

	if s.cfg.DumpPath != "" && s.cfg.DumpInterval > 0 {
		s.dumping = true
		go s.dumpLoop()
	}

	return nil
}

// Close stops the backup goroutine and closes the database.
func (s *Store) Close() error {
	if s.dumping {
		close(s.stopChan)
		<-s.done
		s.dumping = false
	}
	return s.Store.Close()
}

// Location returns the database file path.
func (s *Store) Location() string {
	if s.cfg.Path == "" {
		return "sqlite (memory)"
	}
	return s.cfg.Path
}

// dumpLoop periodically backs the database up to DumpPath via VACUUM INTO.
func (s *Store) dumpLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(s.db, s.cfg.DumpPath); err != nil {
				s.log.Error().Err(err).Msg("Error dumping to disk")
			} else {
				s.log.Debug().Dur("duration", time.Since(start)).Msg("Dumped to disk")
			}
		}
	}
}
