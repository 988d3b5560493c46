// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sloperunner/engine/internal/config"
	"github.com/sloperunner/engine/pkg/core"
)

// Store keeps the leaderboard in memory and optionally exports it as JSON
// when closed.
type Store struct {
	cfg     config.MemoryConfig
	entries []core.LeaderboardEntry
	saves   int
	started time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory store
func New(cfg config.MemoryConfig) *Store {
	return &Store{cfg: cfg}
}

// NewWithEntries creates a memory store pre-populated with entries.
func NewWithEntries(cfg config.MemoryConfig, entries []core.LeaderboardEntry) *Store {
	s := New(cfg)
	s.entries = clone(entries)
	return s
}

// Init records the session start used to name the export file.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = time.Now()
	return nil
}

// Close exports the list when an output directory is configured.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.OutputDir == "" {
		return nil
	}
	return s.exportJSON()
}

// Location names the store for logs.
func (s *Store) Location() string { return "memory" }

// Load returns a copy of the stored list.
func (s *Store) Load(ctx context.Context) ([]core.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.entries), nil
}

// Save replaces the stored list with a copy of entries.
func (s *Store) Save(ctx context.Context, entries []core.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = clone(entries)
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// GetExportedFilePath returns the path written by the last Close, if any.
func (s *Store) GetExportedFilePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastExportPath
}

func clone(entries []core.LeaderboardEntry) []core.LeaderboardEntry {
	out := make([]core.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out
}
