package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNothingPending is returned by Retry when there is no unsaved list.
var ErrNothingPending = errors.New("no pending leaderboard write")

const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Service runs the read-modify-write cycle against a store. It does no locking:
// callers serialize Submit and Retry, the API server does so through the
// dispatcher.
type Service struct {
	store storage.Store
	log   *slog.Logger

	pending    []core.LeaderboardEntry
	hasPending bool

	submissions metric.Int64Counter
}

// NewService creates a service over store.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewService(store storage.Store, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	submissions, err := meter().Int64Counter(
		"leaderboard.submissions",
		metric.WithDescription("Leaderboard submissions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating submissions counter: %w", err)
	}
	return &Service{
		store:       store,
		log:         logger,
		submissions: submissions,
	}, nil
}

// Store returns the backing store.
func (s *Service) Store() storage.Store { return s.store }

// Lookup loads the ranked list. An unavailable store reads as empty.
func (s *Service) Lookup(ctx context.Context) []core.LeaderboardEntry {
	entries, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn("Leaderboard unavailable, treating as empty", "error", err)
		return []core.LeaderboardEntry{}
	}
	return Normalize(entries)
}

// Qualifies reports whether score would enter the current list.
func (s *Service) Qualifies(ctx context.Context, score int) bool {
	return IsTopTen(s.Lookup(ctx), score)
}

// Submit validates the entry, merges it into the current list (the pending
// list when an earlier save failed) and saves the result. When the save fails the merged list is still returned, kept for
// Retry, and the error wraps storage.ErrStoreWriteFailed.
func (s *Service) Submit(ctx context.Context, name string, score float64) ([]core.LeaderboardEntry, error) {
	validName, err := ValidateName(name)
	if err != nil {
		s.count(ctx, outcomeRejected)
		return nil, err
	}
	validScore, err := ValidateScore(score)
	if err != nil {
		s.count(ctx, outcomeRejected)
		return nil, err
	}

	// An unsaved list from an earlier failure is the newest state; building on
	// the store would drop its entry.
	base := s.pending
	if !s.hasPending {
		base = s.Lookup(ctx)
	}
	merged := Merge(base, core.LeaderboardEntry{Name: validName, Score: validScore})
	if err := s.save(ctx, merged); err != nil {
		s.count(ctx, outcomeFailed)
		return merged, err
	}

	s.count(ctx, outcomeAccepted)
	s.log.Info("Leaderboard updated", "name", validName, "score", validScore, "entries", len(merged))
	return merged, nil
}

// Retry saves the list left over by a failed Submit.
func (s *Service) Retry(ctx context.Context) ([]core.LeaderboardEntry, error) {
	if !s.hasPending {
		return nil, ErrNothingPending
	}
	pending := s.pending
	if err := s.save(ctx, pending); err != nil {
		return pending, err
	}
	s.log.Info("Pending leaderboard saved", "entries", len(pending))
	return pending, nil
}

// Pending returns the unsaved list, if any.
func (s *Service) Pending() ([]core.LeaderboardEntry, bool) {
	if !s.hasPending {
		return nil, false
	}
	out := make([]core.LeaderboardEntry, len(s.pending))
	copy(out, s.pending)
	return out, true
}

func (s *Service) save(ctx context.Context, entries []core.LeaderboardEntry) error {
	if err := s.store.Save(ctx, entries); err != nil {
		s.pending = entries
		s.hasPending = true
		s.log.Error("Failed to save leaderboard", "error", err)
		if !errors.Is(err, storage.ErrStoreWriteFailed) {
			err = fmt.Errorf("%w: %v", storage.ErrStoreWriteFailed, err)
		}
		return err
	}
	s.pending = nil
	s.hasPending = false
	return nil
}

func (s *Service) count(ctx context.Context, outcome string) {
	s.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
