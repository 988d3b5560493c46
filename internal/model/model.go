package model

import (
	"time"

	"github.com/sloperunner/engine/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&LeaderboardRow{},
}

// LeaderboardRow is one ranked leaderboard entry. Rank is 1-based and fixes
// the order on load, so equal scores keep their stored order.
type LeaderboardRow struct {
	Rank      int       `json:"rank" gorm:"column:place;primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Score     int       `json:"score" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName returns the leaderboard table name.
func (*LeaderboardRow) TableName() string {
	return "leaderboard"
}

// RowsFromEntries converts an ordered list to rows ranked from 1.
func RowsFromEntries(entries []core.LeaderboardEntry) []LeaderboardRow {
	rows := make([]LeaderboardRow, len(entries))
	for i, e := range entries {
		rows[i] = LeaderboardRow{Rank: i + 1, Name: e.Name, Score: e.Score}
	}
	return rows
}

// EntriesFromRows converts rows, already ordered by rank, to entries.
func EntriesFromRows(rows []LeaderboardRow) []core.LeaderboardEntry {
	entries := make([]core.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = core.LeaderboardEntry{Name: r.Name, Score: r.Score}
	}
	return entries
}
