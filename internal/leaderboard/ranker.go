// Package leaderboard ranks finished runs into a bounded top-ten list and
// persists it through a storage.Store.
package leaderboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sloperunner/engine/pkg/core"
)

const (
	// Capacity is the number of entries kept.
	Capacity = 10
	// MaxNameLength is the longest accepted name, in runes.
	MaxNameLength = 20
)

var (
	ErrInvalidName  = errors.New("invalid name")
	ErrInvalidScore = errors.New("invalid score")
)

// rankSort orders by score descending, keeping insertion order among equal
// scores.
func rankSort(entries []core.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}

func truncate(entries []core.LeaderboardEntry) []core.LeaderboardEntry {
	if len(entries) > Capacity {
		return entries[:Capacity]
	}
	return entries
}

// Merge appends entry to a copy of existing, ranks it and keeps the top ten.
// A new entry that ties an existing score ranks below it.
func Merge(existing []core.LeaderboardEntry, entry core.LeaderboardEntry) []core.LeaderboardEntry {
	merged := make([]core.LeaderboardEntry, 0, len(existing)+1)
	merged = append(merged, existing...)
	merged = append(merged, entry)
	rankSort(merged)
	return truncate(merged)
}

// IsTopTen reports whether score would survive a Merge into existing.
func IsTopTen(existing []core.LeaderboardEntry, score int) bool {
	_, ok := Rank(existing, score)
	return ok
}

// Rank returns the 1-based position score would take after a Merge, and
// whether it makes the list at all.
func Rank(existing []core.LeaderboardEntry, score int) (int, bool) {
	type tagged struct {
		core.LeaderboardEntry
		probe bool
	}
	list := make([]tagged, 0, len(existing)+1)
	for _, e := range existing {
		list = append(list, tagged{LeaderboardEntry: e})
	}
	list = append(list, tagged{LeaderboardEntry: core.LeaderboardEntry{Score: score}, probe: true})

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
	for i := 0; i < len(list) && i < Capacity; i++ {
		if list[i].probe {
			return i + 1, true
		}
	}
	return 0, false
}

// Normalize ranks an arbitrary list, as loaded from a hand-edited store, and
// keeps the top ten.
func Normalize(entries []core.LeaderboardEntry) []core.LeaderboardEntry {
	out := make([]core.LeaderboardEntry, len(entries))
	copy(out, entries)
	rankSort(out)
	return truncate(out)
}

// ValidateName trims name and checks it can be stored as a single record.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	case !utf8.ValidString(name):
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	case utf8.RuneCountInString(name) > MaxNameLength:
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	case strings.ContainsAny(name, ",\r\n"):
		return "", fmt.Errorf("%w: contains a comma or line break", ErrInvalidName)
	}
	return name, nil
}

// ValidateScore checks a decoded JSON number is a finite non-negative integer.
func ValidateScore(score float64) (int, error) {
	switch {
	case math.IsNaN(score) || math.IsInf(score, 0):
		return 0, fmt.Errorf("%w: not finite", ErrInvalidScore)
	case score < 0:
		return 0, fmt.Errorf("%w: negative", ErrInvalidScore)
	case score != math.Trunc(score):
		return 0, fmt.Errorf("%w: not an integer", ErrInvalidScore)
	case score > math.MaxInt32:
		return 0, fmt.Errorf("%w: out of range", ErrInvalidScore)
	}
	return int(score), nil
}
