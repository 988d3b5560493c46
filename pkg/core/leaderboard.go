// pkg/core/leaderboard.go
package core

// LeaderboardEntry is one ranked record of the shared top-10 list.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}
