package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Store = (*Store)(nil)

// Runs against a live server when SLOPERUNNER_TEST_PG_HOST is set.
func TestStore_RoundTrip(t *testing.T) {
	host := os.Getenv("SLOPERUNNER_TEST_PG_HOST")
	if host == "" {
		t.Skip("SLOPERUNNER_TEST_PG_HOST not set")
	}
	t.Cleanup(viper.Reset)
	viper.Set("db.host", host)
	viper.Set("db.port", "5432")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "sloperunner")

	s, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })

	want := []core.LeaderboardEntry{{Name: "Ann", Score: 50}}
	require.NoError(t, s.Save(context.Background(), want))
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Contains(t, s.Location(), host)
}

func TestNew_UnreachableServer(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	_, err := New(Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_FallsBackToSqlite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	s, err := New(Config{Fallback: true}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })

	assert.True(t, s.Local())
	assert.Equal(t, "sqlite://:memory:", s.Location())

	want := []core.LeaderboardEntry{{Name: "Ann", Score: 50}, {Name: "Bob", Score: 30}}
	require.NoError(t, s.Save(context.Background(), want))
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
