package storage

import (
	"strconv"
	"strings"

	"github.com/sloperunner/engine/pkg/core"
)

// ParseText decodes the plain text leaderboard format: one "name,score" record
// per line. Blank lines are skipped, a score that does not parse or is negative reads as 0 and
// records without a name are dropped. The split is on the last comma.
func ParseText(data []byte) []core.LeaderboardEntry {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	entries := make([]core.LeaderboardEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, rawScore, _ := cutLast(line, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(rawScore))
		if err != nil || score < 0 {
			score = 0
		}
		entries = append(entries, core.LeaderboardEntry{Name: name, Score: score})
	}
	return entries
}

// FormatText encodes entries as "name,score" lines joined by "\n" without a
// trailing newline.
func FormatText(entries []core.LeaderboardEntry) []byte {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Name)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(e.Score))
	}
	return []byte(b.String())
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
