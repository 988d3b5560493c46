package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(score int) Run {
	return Run{
		RunID:     "run-1",
		Player:    "Ann",
		Score:     score,
		Ticks:     uint64(score * 60),
		Duration:  time.Duration(score) * time.Second,
		MaxSpeed:  0.25,
		Cause:     "tree",
		Qualified: true,
		EndedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	return string(data)
}

func TestRun_Point(t *testing.T) {
	line := influxdb2_write.PointToLineProtocol(testRun(12).Point(), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "run,cause=tree,player=Ann "))
	assert.Contains(t, line, "score=12i")
	assert.Contains(t, line, "ticks=720i")
	assert.Contains(t, line, "duration_ms=12000i")
	assert.Contains(t, line, "qualified=true")
}

func TestRun_PointAnonymous(t *testing.T) {
	run := testRun(1)
	run.Player = ""
	line := influxdb2_write.PointToLineProtocol(run.Point(), time.Nanosecond)
	assert.Contains(t, line, "player=anonymous")
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_UnreachableFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:   true,
		Protocol:  "http",
		Host:      "127.0.0.1",
		Port:      "1",
		Bucket:    "runs",
		BackupDir: dir,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)
	require.NoError(t, m.Close())
}

func TestFlush_WritesBackupLines(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop(), config.InfluxConfig{BackupDir: dir})
	require.NoError(t, m.UseBackup())

	m.Record(testRun(3))
	m.Record(testRun(7))
	assert.Equal(t, 2, m.Pending())

	require.NoError(t, m.Flush(context.Background()))
	assert.Equal(t, 0, m.Pending())
	require.NoError(t, m.Close())

	lines := strings.Split(strings.TrimSpace(readBackup(t, m.BackupPath)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "score=3i")
	assert.Contains(t, lines[1], "score=7i")
}

func TestFlush_WithoutWriterRequeues(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{BackupDir: t.TempDir()})
	m.Record(testRun(3))

	assert.Error(t, m.Flush(context.Background()))
	assert.Equal(t, 1, m.Pending())
}

func TestRun_FinalFlushOnCancel(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{BackupDir: t.TempDir()})
	require.NoError(t, m.UseBackup())
	m.Record(testRun(5))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, 0, m.Pending())
	require.NoError(t, m.Close())
	assert.Contains(t, readBackup(t, m.BackupPath), "score=5i")
}
