// Package redisstorage keeps the leaderboard in Redis as the same
// "name,score" text the file store writes, under a single key.
package redisstorage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
)

const DefaultKey = "sloperunner:leaderboard"

// Config holds Redis connection settings.
type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// Store implements storage.Store on a Redis string key.
type Store struct {
	client *redis.Client
	cfg    Config
	log    zerolog.Logger
}

// New creates a Redis store. The connection is checked in Init.
func New(cfg Config, logger zerolog.Logger) *Store {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		cfg: cfg,
		log: logger.With().Str("store", "redis").Str("key", cfg.Key).Logger(),
	}
}

// Init pings the server.
func (s *Store) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis store: ping %s: %w", s.cfg.Address, err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Location returns address and key.
func (s *Store) Location() string {
	return fmt.Sprintf("redis://%s/%d#%s", s.cfg.Address, s.cfg.DB, s.cfg.Key)
}

func (s *Store) updatedKey() string {
	return s.cfg.Key + ":updated"
}

// Load reads the leaderboard key. A missing key is an empty list.
func (s *Store) Load(ctx context.Context) ([]core.LeaderboardEntry, error) {
	data, err := s.client.Get(ctx, s.cfg.Key).Bytes()
	if err == redis.Nil {
		return []core.LeaderboardEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStoreUnavailable, err)
	}
	return storage.ParseText(data), nil
}

// Save writes the list and its update time in one round trip.
func (s *Store) Save(ctx context.Context, entries []core.LeaderboardEntry) error {
	pipe := s.client.TxPipeline()

	pipe.Set(ctx, s.cfg.Key, storage.FormatText(entries), 0)
	pipe.Set(ctx, s.updatedKey(), time.Now().UTC().Format(time.RFC3339), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStoreWriteFailed, err)
	}

	s.log.Debug().Int("entries", len(entries)).Msg("Leaderboard saved")
	return nil
}

// UpdatedAt returns when the list was last saved, or the zero time.
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	raw, err := s.client.Get(ctx, s.updatedKey()).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}
