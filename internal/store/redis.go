package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ryosukesatoh/news-curator/internal/config"
	"github.com/ryosukesatoh/news-curator/internal/corpus"
)

// RedisStore keeps the snapshot as one JSON value under a single key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedis connects and verifies the connection with a PING.
func NewRedis(cfg config.RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", cfg.Addr, err)
	}
	key := cfg.Key
	if key == "" {
		key = "news-curator:corpus"
	}
	return &RedisStore{rdb: rdb, key: key}, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *corpus.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*corpus.Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	var snap corpus.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
