// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/sloperunner/engine/pkg/core"
)

var (
	// ErrStoreUnavailable is returned by Load when the backing store exists but
	// cannot be read. Callers treat it as an empty leaderboard.
	ErrStoreUnavailable = errors.New("leaderboard store unavailable")
	// ErrStoreWriteFailed is returned by Save when the list could not be persisted.
	ErrStoreWriteFailed = errors.New("leaderboard store write failed")
)

// Store is the interface all leaderboard backends must satisfy
type Store interface {
	// Lifecycle
	Init() error
	Close() error

	// Load returns the persisted list in stored order. A store that was never
	// written returns an empty list and no error.
	Load(ctx context.Context) ([]core.LeaderboardEntry, error)
	// Save replaces the persisted list.
	Save(ctx context.Context, entries []core.LeaderboardEntry) error
}

// Describer is an optional interface for stores that can name where they keep
// their data, for log lines and the config command.
type Describer interface {
	Location() string
}
