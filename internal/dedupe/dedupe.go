// Package dedupe collapses articles that report the same story.
package dedupe

import (
	"strings"
	"unicode"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// Key returns the identity key of a title: lowercased with every rune that is
// neither a letter, a digit nor whitespace removed. All empty titles share the
// empty key and therefore collapse into one article.
func Key(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Dedupe returns articles with later duplicates removed. Order is preserved
// and the first occurrence of each key wins, whatever its source or date.
func Dedupe(articles []article.Article) []article.Article {
	out := make([]article.Article, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		k := Key(a.Title)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
