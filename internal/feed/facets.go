package feed

import (
	"sort"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// Facets lists the filter choices present in a corpus.
type Facets struct {
	Authors []string `json:"authors"`
	Tags    []string `json:"tags"`
	Sources []string `json:"sources"`
}

// FacetsOf collects the distinct authors, tags and sources of corpus, each
// sorted. The unknown-author sentinel is not offered as a choice.
func FacetsOf(corpus []article.Article) Facets {
	authors := make(map[string]bool)
	tags := make(map[string]bool)
	srcs := make(map[string]bool)
	for _, a := range corpus {
		if a.Author != "" && a.Author != article.UnknownAuthor {
			authors[a.Author] = true
		}
		for _, t := range a.Tags {
			tags[t] = true
		}
		if a.Source != "" {
			srcs[a.Source] = true
		}
	}
	return Facets{Authors: sortedKeys(authors), Tags: sortedKeys(tags), Sources: sortedKeys(srcs)}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
