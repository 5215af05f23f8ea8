// Package classify assigns a category and tag set to articles by keyword
// matching.
//
// Matching is case-insensitive substring search over "title summary". A
// keyword embedded in a longer word still matches ("hacking" in "shacking"),
// trading precision for recall.
package classify

import (
	"strings"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

type entityTerms struct {
	category article.Category
	terms    []string
}

// Classifier is safe for concurrent use; it holds only lowercased copies of
// its taxonomy.
type Classifier struct {
	cyber    []string
	quantum  []string
	geo      []string
	race     []string
	entities []entityTerms
}

// New creates a Classifier over tax.
func New(tax Taxonomy) *Classifier {
	c := &Classifier{
		cyber:   lowerAll(tax.Cybersecurity),
		quantum: lowerAll(tax.Quantum),
		geo:     lowerAll(tax.Geographic),
		race:    lowerAll(tax.Race),
	}
	for _, e := range tax.Entities {
		c.entities = append(c.entities, entityTerms{category: e.Category, terms: lowerAll(e.Terms)})
	}
	return c
}

// Classify returns the category and tags for a title and summary. The
// decision order is fixed: regional security, regional quantum, national
// security, national quantum, watched entities, the governor's race, general.
func (c *Classifier) Classify(title, summary string) (article.Category, []string) {
	text := strings.ToLower(title + " " + summary)

	geo := containsAny(text, c.geo)
	cyber := containsAny(text, c.cyber)
	quantum := containsAny(text, c.quantum)

	var category article.Category
	switch {
	case geo && cyber:
		category = article.MarylandCybersecurity
	case geo && quantum:
		category = article.MarylandQuantum
	case cyber:
		category = article.NationalCybersecurity
	case quantum:
		category = article.NationalQuantum
	default:
		category = c.entityCategory(text)
	}

	return category, c.tags(text)
}

// Apply returns a with Category and Tags set.
func (c *Classifier) Apply(a article.Article) article.Article {
	a.Category, a.Tags = c.Classify(a.Title, a.Summary)
	return a
}

// ApplyAll classifies every article, returning a new slice.
func (c *Classifier) ApplyAll(articles []article.Article) []article.Article {
	out := make([]article.Article, len(articles))
	for i, a := range articles {
		out[i] = c.Apply(a)
	}
	return out
}

func (c *Classifier) entityCategory(text string) article.Category {
	for _, e := range c.entities {
		if containsAny(text, e.terms) {
			return e.category
		}
	}
	if containsAny(text, c.race) {
		return article.Gubernatorial
	}
	return article.General
}

func (c *Classifier) tags(text string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	collect := func(keywords []string) {
		for _, kw := range keywords {
			if !seen[kw] && strings.Contains(text, kw) {
				seen[kw] = true
				tags = append(tags, kw)
			}
		}
	}
	collect(c.cyber)
	collect(c.quantum)
	for _, e := range c.entities {
		collect(e.terms)
	}
	collect(c.geo)
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
