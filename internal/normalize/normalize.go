// Package normalize maps raw upstream records onto the canonical Article shape.
// Normalization never fails: missing or malformed fields degrade to defaults.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// IDPrefix is prepended to the URL tail to form an article id.
const IDPrefix = "src-"

const fallbackIDLen = 9

// IDGenerator supplies the random token used when a record has no usable URL.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// RandomIDs returns 9 lowercase hex characters drawn from a random UUID.
func RandomIDs() IDGenerator {
	return IDGeneratorFunc(func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:fallbackIDLen]
	})
}

// Layouts accepted for publishedAt, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Normalizer converts RawArticles. The zero value is not usable; use New.
type Normalizer struct {
	ids IDGenerator
	now func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithIDGenerator overrides the fallback id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(n *Normalizer) { n.ids = g }
}

// WithClock overrides the ingestion clock.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// New creates a Normalizer backed by random ids and the wall clock.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{ids: RandomIDs(), now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds one Article from raw using a fresh ingestion time.
func (n *Normalizer) Normalize(raw article.RawArticle, apiSource string) article.Article {
	return n.NormalizeAt(raw, apiSource, n.now())
}

// NormalizeAll builds one Article per record. All records share a single
// ingestion time so that defaulted dates do not drift within a batch.
func (n *Normalizer) NormalizeAll(raws []article.RawArticle, apiSource string) []article.Article {
	ingested := n.now()
	out := make([]article.Article, len(raws))
	for i, raw := range raws {
		out[i] = n.NormalizeAt(raw, apiSource, ingested)
	}
	return out
}

// NormalizeAt builds one Article, using ingested when the record carries no
// usable publish time.
func (n *Normalizer) NormalizeAt(raw article.RawArticle, apiSource string, ingested time.Time) article.Article {
	author := strings.TrimSpace(raw.Author)
	if author == "" {
		author = article.UnknownAuthor
	}
	published, ok := parseTime(raw.PublishedAt)
	if !ok {
		published = ingested
	}
	return article.Article{
		ID:          n.id(raw.URL),
		Title:       raw.Title,
		Summary:     raw.Description,
		Source:      raw.Source.Name,
		Author:      author,
		PublishDate: published,
		URL:         raw.URL,
		ImageURL:    raw.URLToImage,
		Tags:        []string{},
		APISource:   apiSource,
	}
}

func (n *Normalizer) id(rawURL string) string {
	if tail := lastPathSegment(rawURL); tail != "" {
		return IDPrefix + tail
	}
	return n.ids.NewID()
}

// lastPathSegment returns the text after the final "/" once the scheme and
// any trailing slashes are removed. Query strings are kept.
func lastPathSegment(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
