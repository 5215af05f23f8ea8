package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// SearchParams describes one upstream search.
type SearchParams struct {
	Term     string
	Language string
	SortHint string
	PageSize int
}

// Fetcher is an interface for searching an upstream news channel
type Fetcher interface {
	Search(ctx context.Context, params SearchParams) ([]article.RawArticle, error)
}

// UpstreamError is returned when the upstream answers but reports a failure.
// Message is the upstream's own explanation and is meant for logs only.
type UpstreamError struct {
	Term    string
	Status  string
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no message"
	}
	if e.Code != "" {
		return fmt.Sprintf("upstream status %q (%s) for %q: %s", e.Status, e.Code, e.Term, msg)
	}
	return fmt.Sprintf("upstream status %q for %q: %s", e.Status, e.Term, msg)
}

// ErrUnknownChannel is returned when no fetcher serves a query's channel
var ErrUnknownChannel = errors.New("unknown upstream channel")

// Registry maps query channels to fetchers.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

// Register routes channel to f, replacing any previous fetcher.
func (r *Registry) Register(channel string, f Fetcher) {
	r.fetchers[channel] = f
}

// Get returns the fetcher for channel.
func (r *Registry) Get(channel string) (Fetcher, error) {
	f, ok := r.fetchers[channel]
	if !ok {
		return nil, fmt.Errorf("fetcher: %w %q (registered: %s)", ErrUnknownChannel, channel, strings.Join(r.Channels(), ", "))
	}
	return f, nil
}

// Channels lists registered channel names, sorted.
func (r *Registry) Channels() []string {
	out := make([]string, 0, len(r.fetchers))
	for c := range r.fetchers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
