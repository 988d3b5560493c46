// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestParseText(t *testing.T) {
	entries := storage.ParseText([]byte("Ann,50\nBob,30\n\nCat,abc\n,7\nDan,12\n"))

	assert.Equal(t, []core.LeaderboardEntry{
		{Name: "Ann", Score: 50},
		{Name: "Bob", Score: 30},
		{Name: "Cat", Score: 0},
		{Name: "Dan", Score: 12},
	}, entries)
}

func TestParseText_Empty(t *testing.T) {
	assert.Empty(t, storage.ParseText(nil))
	assert.Empty(t, storage.ParseText([]byte("\n\n")))
}

func TestParseText_MissingCommaScoresZero(t *testing.T) {
	assert.Equal(t, []core.LeaderboardEntry{{Name: "Eve", Score: 0}}, storage.ParseText([]byte("Eve")))
}

func TestParseText_CRLF(t *testing.T) {
	entries := storage.ParseText([]byte("Ann,50\r\nBob,30\r\n"))
	assert.Equal(t, []core.LeaderboardEntry{{Name: "Ann", Score: 50}, {Name: "Bob", Score: 30}}, entries)
}

func TestFormatText(t *testing.T) {
	data := storage.FormatText([]core.LeaderboardEntry{{Name: "Ann", Score: 50}, {Name: "Bob", Score: 30}})
	assert.Equal(t, "Ann,50\nBob,30", string(data))
	assert.Empty(t, storage.FormatText(nil))
}

func TestText_RoundTripIsByteIdentical(t *testing.T) {
	original := []byte("Zoe,900\nYan,450\nXia,450\nWes,3")
	assert.Equal(t, original, storage.FormatText(storage.ParseText(original)))
}

func TestParseText_NegativeScoreReadsAsZero(t *testing.T) {
	entries := storage.ParseText([]byte("Ann,50\nMal,-5"))
	assert.Equal(t, []core.LeaderboardEntry{{Name: "Ann", Score: 50}, {Name: "Mal", Score: 0}}, entries)
}
