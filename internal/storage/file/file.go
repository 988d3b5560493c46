// Package filestorage keeps the leaderboard in a plain text file, one
// "name,score" record per line.
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
	"github.com/spf13/afero"
)

// Config holds configuration for the file store.
type Config struct {
	Path string
}

// Store implements storage.Store on top of an afero filesystem.
type Store struct {
	fs     afero.Fs
	path   string
	logger zerolog.Logger
}

// New creates a file store on the OS filesystem.
func New(cfg Config, logger zerolog.Logger) *Store {
	return NewWithFs(afero.NewOsFs(), cfg, logger)
}

// NewWithFs creates a file store on the given filesystem.
func NewWithFs(fsys afero.Fs, cfg Config, logger zerolog.Logger) *Store {
	return &Store{
		fs:     fsys,
		path:   cfg.Path,
		logger: logger.With().Str("store", "file").Str("path", cfg.Path).Logger(),
	}
}

// Init makes sure the parent directory exists. The file itself is created on
// the first Save.
func (s *Store) Init() error {
	if s.path == "" {
		return fmt.Errorf("file store: path not set")
	}
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Location returns the leaderboard file path.
func (s *Store) Location() string { return s.path }

// Load reads and parses the leaderboard file. A missing file is an empty list.
func (s *Store) Load(ctx context.Context) ([]core.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStoreUnavailable, err)
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug().Msg("Leaderboard file not found, starting empty")
		return []core.LeaderboardEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", storage.ErrStoreUnavailable, s.path, err)
	}

	return storage.ParseText(data), nil
}

// Save writes the list to a temporary file next to the target and renames it
// into place, so readers never observe a partial list.
func (s *Store) Save(ctx context.Context, entries []core.LeaderboardEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStoreWriteFailed, err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, storage.FormatText(entries), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", storage.ErrStoreWriteFailed, tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", storage.ErrStoreWriteFailed, tmp, err)
	}

	s.logger.Debug().Int("entries", len(entries)).Msg("Leaderboard saved")
	return nil
}

// ReadRaw returns the file contents as stored, for serving the text endpoint.
// A missing file yields an empty body.
func (s *Store) ReadRaw() ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", storage.ErrStoreUnavailable, s.path, err)
	}
	return data, nil
}
