// Package store persists the last installed corpus so a restarted process
// can serve stale-but-present data before its first refresh completes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryosukesatoh/news-curator/internal/config"
	"github.com/ryosukesatoh/news-curator/internal/corpus"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store keeps a single corpus snapshot.
type Store interface {
	Save(ctx context.Context, snap *corpus.Snapshot) error
	Load(ctx context.Context) (*corpus.Snapshot, error)
	Close() error
}

// New creates a store based on the configuration. Type "none" yields nil.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "bolt":
		s, err := OpenBolt(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("store: unsupported type %q", cfg.Type)
	}
}
