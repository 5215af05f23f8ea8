package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/sources"
)

// RSSFetcher reads the feeds of SourceDirectory outlets. The search term is
// the outlet name; every feed item becomes one record attributed to it.
type RSSFetcher struct {
	parser *gofeed.Parser
	dir    *sources.Directory
}

// NewRSSFetcher creates a fetcher over the outlets in dir that have feeds.
func NewRSSFetcher(dir *sources.Directory, timeout time.Duration) *RSSFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "news-curator/1.0"
	return &RSSFetcher{parser: parser, dir: dir}
}

func (f *RSSFetcher) Search(ctx context.Context, params SearchParams) ([]article.RawArticle, error) {
	src, ok := f.dir.Lookup(params.Term)
	if !ok || src.FeedURL == "" {
		return nil, &UpstreamError{Term: params.Term, Status: "error", Message: "outlet has no feed"}
	}

	feed, err := f.parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss: fetching %s: %w", src.Name, err)
	}

	items := feed.Items
	if params.PageSize > 0 && len(items) > params.PageSize {
		items = items[:params.PageSize]
	}

	out := make([]article.RawArticle, 0, len(items))
	for _, item := range items {
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		raw := article.RawArticle{
			Source:      article.RawSource{Name: src.Name},
			Author:      itemAuthor(item),
			Title:       strings.TrimSpace(item.Title),
			Description: stripHTML(desc),
			URL:         item.Link,
		}
		if item.PublishedParsed != nil {
			raw.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			raw.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}
		if item.Image != nil {
			raw.URLToImage = item.Image.URL
		}
		out = append(out, raw)
	}
	return out, nil
}

func itemAuthor(item *gofeed.Item) string {
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}

// stripHTML returns the text content of an HTML fragment with whitespace
// collapsed.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
