// Package corpus holds the current article collection. The collection is
// swapped wholesale between fetch cycles and never edited in place.
package corpus

import (
	"sync/atomic"
	"time"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// Snapshot is an immutable corpus version.
type Snapshot struct {
	Generation uint64            `json:"generation"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Articles   []article.Article `json:"articles"`
}

// Corpus is safe for concurrent use. Readers never block writers.
type Corpus struct {
	next    atomic.Uint64
	current atomic.Pointer[Snapshot]
}

// New returns an empty corpus.
func New() *Corpus {
	c := &Corpus{}
	c.current.Store(&Snapshot{Articles: []article.Article{}})
	return c
}

// NextGeneration reserves a generation number for a refresh about to start.
// Numbers increase strictly.
func (c *Corpus) NextGeneration() uint64 {
	return c.next.Add(1)
}

// Replace installs articles as generation gen unless a newer generation is
// already installed. It reports whether the install happened.
func (c *Corpus) Replace(gen uint64, fetchedAt time.Time, articles []article.Article) bool {
	if articles == nil {
		articles = []article.Article{}
	}
	snap := &Snapshot{Generation: gen, FetchedAt: fetchedAt, Articles: articles}
	for {
		cur := c.current.Load()
		if cur.Generation >= gen {
			return false
		}
		if c.current.CompareAndSwap(cur, snap) {
			return true
		}
	}
}

// Restore installs a previously persisted snapshot and advances the
// generation counter past it. It is a no-op if a newer snapshot is present.
func (c *Corpus) Restore(s Snapshot) bool {
	for {
		n := c.next.Load()
		if n >= s.Generation || c.next.CompareAndSwap(n, s.Generation) {
			break
		}
	}
	return c.Replace(s.Generation, s.FetchedAt, s.Articles)
}

// Current returns the installed snapshot. Callers must not modify it.
func (c *Corpus) Current() *Snapshot {
	return c.current.Load()
}

// Articles returns the installed article slice. Callers must not modify it.
func (c *Corpus) Articles() []article.Article {
	return c.current.Load().Articles
}
