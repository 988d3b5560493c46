// Package gormstorage implements storage.Store on any GORM dialect. The sqlite
// and postgres stores embed it and only differ in how they open the database.
package gormstorage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/database"
	"github.com/sloperunner/engine/internal/model"
	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM store.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// Store implements storage.Store with one row per ranked entry.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a new GORM store.
func New(deps Dependencies) *Store {
	return &Store{
		db:  deps.DB,
		log: deps.Logger.With().Str("store", deps.DB.Dialector.Name()).Logger(),
	}
}

// Init migrates the leaderboard table.
func (s *Store) Init() error {
	if err := database.Migrate(s.db); err != nil {
		return err
	}
	s.log.Debug().Msg("Leaderboard table ready")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// DB exposes the underlying handle to embedding stores.
func (s *Store) DB() *gorm.DB { return s.db }

// Load returns the rows ordered by rank.
func (s *Store) Load(ctx context.Context) ([]core.LeaderboardEntry, error) {
	var rows []model.LeaderboardRow
	if err := s.db.WithContext(ctx).Order("place ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStoreUnavailable, err)
	}
	return model.EntriesFromRows(rows), nil
}

// Save replaces all rows in one transaction.
func (s *Store) Save(ctx context.Context, entries []core.LeaderboardEntry) error {
	rows := model.RowsFromEntries(entries)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.LeaderboardRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStoreWriteFailed, err)
	}

	s.log.Debug().Int("entries", len(rows)).Msg("Leaderboard saved")
	return nil
}
