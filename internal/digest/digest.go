// Package digest builds the newsletter edition sent by the email, Discord
// and stdout publishers.
package digest

import (
	"sort"
	"time"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// Digest is one newsletter edition.
type Digest struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Total    int       `json:"total"`
	Sections []Section `json:"sections"`
}

// Section holds the newest articles of one category.
type Section struct {
	Category article.Category  `json:"category"`
	Label    string            `json:"label"`
	Count    int               `json:"count"`
	Articles []article.Article `json:"articles"`
}

// Build groups corpus by category in display order and keeps the perSection
// newest articles of each. Empty categories are omitted. Total counts the
// whole corpus, not just the articles shown.
func Build(title string, date time.Time, corpus []article.Article, perSection int) *Digest {
	byCategory := make(map[article.Category][]article.Article)
	for _, a := range corpus {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}

	d := &Digest{Title: title, Date: date, Total: len(corpus), Sections: []Section{}}
	for _, c := range article.Categories() {
		items := byCategory[c]
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PublishDate.After(items[j].PublishDate)
		})
		count := len(items)
		if perSection > 0 && len(items) > perSection {
			items = items[:perSection]
		}
		d.Sections = append(d.Sections, Section{Category: c, Label: c.Label(), Count: count, Articles: items})
	}
	return d
}

// Shown returns the number of articles included across all sections.
func (d *Digest) Shown() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Articles)
	}
	return n
}
