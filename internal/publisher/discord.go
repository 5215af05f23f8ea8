package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/digest"
	"github.com/ryosukesatoh/news-curator/internal/retry"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	URL         string              `json:"url,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

var categoryColors = map[article.Category]int{
	article.MarylandCybersecurity: 0xE94560,
	article.MarylandQuantum:       0x9B59B6,
	article.NationalCybersecurity: 0xE67E22,
	article.NationalQuantum:       0x3498DB,
	article.SteveHershey:          0x2ECC71,
	article.Gubernatorial:         0xF1C40F,
}

const discordBlurple = 0x5865F2

// DiscordPublisher publishes digests to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
	batchDelay  time.Duration
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
		},
		batchDelay: 500 * time.Millisecond,
	}
}

// Publish sends the digest to Discord as a series of rich embeds.
func (d *DiscordPublisher) Publish(ctx context.Context, edition *Edition) error {
	embeds := buildEmbeds(edition.Digest)
	batches := batchEmbeds(embeds)

	for i, batch := range batches {
		err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
			return d.sendWebhook(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("discord: failed to send batch %d: %w", i+1, err)
		}

		// Delay between batches to avoid rate limits.
		if i < len(batches)-1 && d.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.batchDelay):
			}
		}
	}
	return nil
}

// buildEmbeds creates the header embed and one embed per category section.
func buildEmbeds(dg *digest.Digest) []discordEmbed {
	embeds := make([]discordEmbed, 0, len(dg.Sections)+1)

	embeds = append(embeds, discordEmbed{
		Title:       truncate(dg.Title, 256),
		Description: fmt.Sprintf("%d articles across %d categories", dg.Total, len(dg.Sections)),
		Color:       discordBlurple,
		Footer:      &discordEmbedFooter{Text: dg.Date.Format("2006-01-02")},
		Timestamp:   dg.Date.Format(time.RFC3339),
	})

	for _, s := range dg.Sections {
		color, ok := categoryColors[s.Category]
		if !ok {
			color = discordBlurple
		}
		e := discordEmbed{
			Title:       truncate(fmt.Sprintf("%s (%d)", s.Label, s.Count), 256),
			Description: truncate(formatArticleList(s.Articles), 4096),
			Color:       color,
		}
		if len(s.Articles) < s.Count {
			e.Footer = &discordEmbedFooter{Text: fmt.Sprintf("Showing %d of %d", len(s.Articles), s.Count)}
		}
		embeds = append(embeds, e)
	}

	return embeds
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= 10 || currentChars+ec > 6000) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// sendWebhook posts a batch of embeds to the Discord webhook.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	payload := discordWebhookPayload{Embeds: embeds}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.StatusError{Code: resp.StatusCode}
	}

	return nil
}

// truncate shortens s to max characters, preferring a sentence boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := s[:max-1]
	// Try to cut at a sentence boundary.
	if idx := strings.LastIndexAny(cut, ".!?"); idx > max/2 {
		return cut[:idx+1]
	}
	return cut + "\u2026"
}

// formatArticleList renders one markdown bullet per article.
func formatArticleList(articles []article.Article) string {
	var b strings.Builder
	for i, a := range articles {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("\u2022 ")
		if a.URL != "" {
			fmt.Fprintf(&b, "[%s](%s)", a.Title, a.URL)
		} else {
			b.WriteString(a.Title)
		}
		if a.Source != "" {
			b.WriteString(" | ")
			b.WriteString(a.Source)
		}
	}
	return b.String()
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := len(e.Title) + len(e.Description)
	for _, f := range e.Fields {
		n += len(f.Name) + len(f.Value)
	}
	if e.Footer != nil {
		n += len(e.Footer.Text)
	}
	return n
}
