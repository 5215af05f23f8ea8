// Package feed is the read path over a corpus: filtering, sorting and the
// facet lists the presentation layer offers as filter choices.
package feed

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// SortKey selects the ordering of a result.
type SortKey string

const (
	SortNewest         SortKey = "date-desc"
	SortOldest         SortKey = "date-asc"
	SortSourcePriority SortKey = "source-priority"
	SortRelevance      SortKey = "relevance"
)

// SortKeys returns the supported sort keys, default first.
func SortKeys() []SortKey {
	return []SortKey{SortNewest, SortOldest, SortSourcePriority, SortRelevance}
}

// Normalize maps an empty or unknown key to SortNewest.
func (k SortKey) Normalize() SortKey {
	switch k {
	case SortNewest, SortOldest, SortSourcePriority, SortRelevance:
		return k
	}
	return SortNewest
}

// FilterState is a caller-owned view definition. Empty sets mean no
// restriction, a zero time means an open bound and any combination is valid.
type FilterState struct {
	Category article.Category
	Sources  []string
	Search   string
	From     time.Time
	To       time.Time
	Authors  []string
	Tags     []string
	Sort     SortKey
}

// PriorityLookup resolves an outlet name to its display priority. Lower is
// more prominent; unknown outlets must report a value above every real one.
type PriorityLookup interface {
	Priority(name string) int
}

// Result is the output handed to the presentation layer.
type Result struct {
	Count    int               `json:"count"`
	Articles []article.Article `json:"articles"`
}

// Engine applies FilterStates. It never mutates the corpus it is given.
type Engine struct {
	priorities PriorityLookup
}

// New creates an Engine. A nil lookup ranks every source as unknown.
func New(priorities PriorityLookup) *Engine {
	return &Engine{priorities: priorities}
}

// Apply filters corpus by fs and sorts the survivors.
func (e *Engine) Apply(corpus []article.Article, fs FilterState) Result {
	match := newMatcher(fs)
	out := make([]article.Article, 0, len(corpus))
	for _, a := range corpus {
		if match(a) {
			out = append(out, a)
		}
	}
	e.sort(out, fs.Sort.Normalize())
	return Result{Count: len(out), Articles: out}
}

func newMatcher(fs FilterState) func(article.Article) bool {
	sources := toSet(fs.Sources)
	authors := toSet(fs.Authors)
	tags := toSet(fs.Tags)
	search := strings.ToLower(strings.TrimSpace(fs.Search))
	filterCategory := fs.Category != "" && fs.Category != article.CategoryAll

	return func(a article.Article) bool {
		if filterCategory && a.Category != fs.Category {
			return false
		}
		if sources != nil && !sources[a.Source] {
			return false
		}
		if search != "" && !matchesSearch(a, search) {
			return false
		}
		if !fs.From.IsZero() && a.PublishDate.Before(fs.From) {
			return false
		}
		if !fs.To.IsZero() && a.PublishDate.After(fs.To) {
			return false
		}
		if authors != nil && !authors[a.Author] {
			return false
		}
		if tags != nil && !anyTag(a, tags) {
			return false
		}
		return true
	}
}

func matchesSearch(a article.Article, term string) bool {
	if strings.Contains(strings.ToLower(a.Title), term) ||
		strings.Contains(strings.ToLower(a.Summary), term) ||
		strings.Contains(strings.ToLower(a.Source), term) {
		return true
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

func anyTag(a article.Article, selected map[string]bool) bool {
	for _, t := range a.Tags {
		if selected[t] {
			return true
		}
	}
	return false
}

func (e *Engine) sort(articles []article.Article, key SortKey) {
	switch key {
	case SortOldest:
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].PublishDate.Before(articles[j].PublishDate)
		})
	case SortSourcePriority:
		prio := make(map[string]int)
		for _, a := range articles {
			if _, ok := prio[a.Source]; !ok {
				prio[a.Source] = e.priority(a.Source)
			}
		}
		sort.SliceStable(articles, func(i, j int) bool {
			pi, pj := prio[articles[i].Source], prio[articles[j].Source]
			if pi != pj {
				return pi < pj
			}
			return articles[i].PublishDate.After(articles[j].PublishDate)
		})
	case SortRelevance:
		words := make([]int, len(articles))
		for i, a := range articles {
			words[i] = len(strings.Fields(a.Title + " " + a.Summary))
		}
		idx := make([]int, len(articles))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return words[idx[i]] > words[idx[j]] })
		sorted := make([]article.Article, len(articles))
		for i, k := range idx {
			sorted[i] = articles[k]
		}
		copy(articles, sorted)
	default:
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].PublishDate.After(articles[j].PublishDate)
		})
	}
}

func (e *Engine) priority(source string) int {
	if e.priorities == nil {
		return math.MaxInt
	}
	return e.priorities.Priority(source)
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
