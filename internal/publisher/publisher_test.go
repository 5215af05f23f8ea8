package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/config"
	"github.com/ryosukesatoh/news-curator/internal/corpus"
	"github.com/ryosukesatoh/news-curator/internal/digest"
	"github.com/ryosukesatoh/news-curator/internal/feed"
	"github.com/ryosukesatoh/news-curator/internal/metrics"
	"github.com/ryosukesatoh/news-curator/internal/sources"
)

var editionDate = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleArticles() []article.Article {
	return []article.Article{
		{
			ID: "src-ransomware", Title: "Ransomware hits Baltimore <schools>", Summary: "Systems offline.",
			Source: "The Baltimore Sun", Author: "Ann", PublishDate: editionDate.Add(-time.Hour),
			URL: "https://baltimoresun.com/ransomware", Category: article.MarylandCybersecurity,
			Tags: []string{"ransomware", "baltimore"},
		},
		{
			ID: "src-quantum", Title: "Quantum lab opens", Source: "Wall Street Journal", Author: "Unknown",
			PublishDate: editionDate.Add(-2 * time.Hour), URL: "https://wsj.com/quantum",
			Category: article.NationalQuantum, Tags: []string{"quantum"},
		},
		{
			ID: "src-weather", Title: "Weekend weather", Source: "WYPR", Author: "Bob",
			PublishDate: editionDate.Add(-3 * time.Hour), URL: "https://wypr.org/weather",
			Category: article.General, Tags: []string{},
		},
	}
}

func sampleEdition() *Edition {
	articles := sampleArticles()
	return &Edition{
		Snapshot: &corpus.Snapshot{Generation: 3, FetchedAt: editionDate, Articles: articles},
		Digest:   digest.Build("Maryland News Curator", editionDate, articles, 5),
	}
}

func TestStdoutPublish(t *testing.T) {
	var buf bytes.Buffer
	pub := &StdoutPublisher{out: &buf}

	if err := pub.Publish(context.Background(), sampleEdition()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Maryland News Curator",
		"Articles: 3 (showing 3)",
		"MD Cybersecurity (1)",
		"National Quantum (1)",
		"Ransomware hits Baltimore",
		"Tags: ransomware, baltimore",
		"The Baltimore Sun | Ann",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestEmailPublish(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	pub := NewEmailPublisher("smtp.example.com", 2525, "user", "pass", "news@example.com", []string{"a@example.com", "b@example.com"})
	pub.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := pub.Publish(context.Background(), sampleEdition()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if gotAddr != "smtp.example.com:2525" || gotFrom != "news@example.com" || len(gotTo) != 2 {
		t.Errorf("Unexpected envelope: %s %s %v", gotAddr, gotFrom, gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Maryland News Curator - 2026-03-01") {
		t.Errorf("Expected subject line, got:\n%s", msg)
	}
	if !strings.Contains(msg, "Ransomware hits Baltimore &lt;schools&gt;") {
		t.Error("Expected titles to be HTML escaped")
	}
	if !strings.Contains(msg, "To: a@example.com,b@example.com") {
		t.Error("Expected To header with all recipients")
	}
}

func TestEmailPublishError(t *testing.T) {
	pub := NewEmailPublisher("smtp.example.com", 587, "", "", "news@example.com", []string{"a@example.com"})
	pub.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay denied") }

	err := pub.Publish(context.Background(), sampleEdition())
	if err == nil || !strings.Contains(err.Error(), "email: failed to send: relay denied") {
		t.Errorf("Expected wrapped send error, got %v", err)
	}
}

func TestBuildHTMLBodyEmptyDigest(t *testing.T) {
	body := buildHTMLBody(digest.Build("Brief", editionDate, nil, 5))
	if !strings.Contains(body, "No articles in this edition.") {
		t.Error("Expected empty-edition notice")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		check func(string) bool
		desc  string
	}{
		{
			name:  "short string unchanged",
			input: "hello",
			max:   10,
			check: func(s string) bool { return s == "hello" },
			desc:  "expected 'hello'",
		},
		{
			name:  "exact length unchanged",
			input: "hello",
			max:   5,
			check: func(s string) bool { return s == "hello" },
			desc:  "expected 'hello'",
		},
		{
			name:  "long string truncated with ellipsis",
			input: "This is a very long string that should be truncated",
			max:   20,
			check: func(s string) bool { return len(s) < 52 && strings.HasSuffix(s, "…") },
			desc:  "expected truncated string ending with ellipsis",
		},
		{
			name:  "truncation prefers sentence boundary",
			input: "A long enough first sentence. The rest is extra padding text here.",
			max:   40,
			check: func(s string) bool { return s == "A long enough first sentence." },
			desc:  "expected truncation at sentence boundary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if !tt.check(result) {
				t.Errorf("%s, got %q", tt.desc, result)
			}
		})
	}
}

func TestFormatArticleList(t *testing.T) {
	result := formatArticleList([]article.Article{
		{Title: "Linked", URL: "https://x.test/1", Source: "WYPR"},
		{Title: "Bare"},
	})
	lines := strings.Split(result, "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "• [Linked](https://x.test/1) | WYPR" {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if lines[1] != "• Bare" {
		t.Errorf("Unexpected second line %q", lines[1])
	}
	if formatArticleList(nil) != "" {
		t.Error("Expected empty string for no articles")
	}
}

func TestEmbedCharCount(t *testing.T) {
	e := discordEmbed{
		Title:       "Title",       // 5
		Description: "Description", // 11
		Fields: []discordEmbedField{
			{Name: "Field", Value: "Value"}, // 5 + 5 = 10
		},
		Footer: &discordEmbedFooter{Text: "Footer"}, // 6
	}

	count := embedCharCount(e)
	expected := 5 + 11 + 5 + 5 + 6
	if count != expected {
		t.Errorf("Expected char count %d, got %d", expected, count)
	}
}

func TestBatchEmbedsOver10(t *testing.T) {
	embeds := make([]discordEmbed, 12)
	for i := range embeds {
		embeds[i] = discordEmbed{Title: "T"}
	}

	batches := batchEmbeds(embeds)
	if len(batches) != 2 {
		t.Errorf("Expected 2 batches for 12 embeds, got %d", len(batches))
	}
	if len(batches[0]) != 10 {
		t.Errorf("Expected 10 embeds in first batch, got %d", len(batches[0]))
	}
	if len(batches[1]) != 2 {
		t.Errorf("Expected 2 embeds in second batch, got %d", len(batches[1]))
	}
}

func TestBatchEmbedsCharLimit(t *testing.T) {
	// Each embed has 2000 chars. 3 embeds = 6000 chars, so the 4th should start a new batch.
	embeds := make([]discordEmbed, 4)
	for i := range embeds {
		embeds[i] = discordEmbed{Description: strings.Repeat("x", 2000)}
	}

	batches := batchEmbeds(embeds)
	if len(batches) != 2 {
		t.Errorf("Expected 2 batches due to char limit, got %d", len(batches))
	}
	if len(batches[0]) != 3 {
		t.Errorf("Expected 3 embeds in first batch, got %d", len(batches[0]))
	}
}

func TestBuildEmbeds(t *testing.T) {
	articles := sampleArticles()
	embeds := buildEmbeds(digest.Build("Brief", editionDate, articles, 5))

	if len(embeds) != 4 {
		t.Fatalf("Expected header + 3 section embeds, got %d", len(embeds))
	}
	if embeds[0].Description != "3 articles across 3 categories" {
		t.Errorf("Unexpected header description %q", embeds[0].Description)
	}
	if embeds[1].Title != "MD Cybersecurity (1)" || embeds[1].Color != 0xE94560 {
		t.Errorf("Unexpected first section embed: %+v", embeds[1])
	}
	if embeds[3].Color != discordBlurple {
		t.Errorf("Expected general section to use default color, got %#x", embeds[3].Color)
	}

	limited := buildEmbeds(digest.Build("Brief", editionDate, append(articles, articles[2]), 1))
	last := limited[len(limited)-1]
	if last.Footer == nil || last.Footer.Text != "Showing 1 of 2" {
		t.Errorf("Expected truncation footer, got %+v", last.Footer)
	}
}

func TestDiscordPublishWithMockWebhook(t *testing.T) {
	var receivedPayloads []discordWebhookPayload

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		body, _ := io.ReadAll(r.Body)
		var payload discordWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("Failed to parse webhook payload: %v", err)
		}
		receivedPayloads = append(receivedPayloads, payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	pub := &DiscordPublisher{
		webhookURL: ts.URL,
		client:     ts.Client(),
	}

	if err := pub.Publish(context.Background(), sampleEdition()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(receivedPayloads) != 1 {
		t.Fatalf("Expected 1 webhook payload, got %d", len(receivedPayloads))
	}
	if got := len(receivedPayloads[0].Embeds); got != 4 {
		t.Errorf("Expected 4 embeds, got %d", got)
	}
	if !strings.Contains(receivedPayloads[0].Embeds[0].Title, "Maryland News Curator") {
		t.Errorf("Expected header title, got %q", receivedPayloads[0].Embeds[0].Title)
	}
}

func TestDiscordPublishWebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	pub := &DiscordPublisher{
		webhookURL: ts.URL,
		client:     ts.Client(),
	}

	err := pub.Publish(context.Background(), sampleEdition())
	if err == nil {
		t.Fatal("Expected error for webhook failure")
	}
	if !strings.Contains(err.Error(), "unexpected status 400") {
		t.Errorf("Expected 'unexpected status 400' error, got: %v", err)
	}
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublish(t *testing.T) {
	w := &fakeWriter{}
	pub := &KafkaPublisher{writer: w, topic: "curated-articles", log: zaptest.NewLogger(t)}

	if err := pub.Publish(context.Background(), sampleEdition()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(w.messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(w.messages))
	}
	if string(w.messages[0].Key) != "src-ransomware" {
		t.Errorf("Expected message keyed by article id, got %q", w.messages[0].Key)
	}

	var ev articleEvent
	if err := json.Unmarshal(w.messages[1].Value, &ev); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if ev.Generation != 3 || ev.Article.ID != "src-quantum" || ev.Article.Category != article.NationalQuantum {
		t.Errorf("Unexpected event %+v", ev)
	}

	if err := pub.Close(); err != nil || !w.closed {
		t.Errorf("Expected writer to be closed, err=%v", err)
	}
}

func TestKafkaPublishEmptyAndError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	pub := &KafkaPublisher{writer: w, topic: "t", log: zaptest.NewLogger(t)}

	empty := &Edition{Snapshot: &corpus.Snapshot{}, Digest: digest.Build("", editionDate, nil, 1)}
	if err := pub.Publish(context.Background(), empty); err != nil {
		t.Errorf("Expected empty snapshot to be skipped, got %v", err)
	}
	if err := pub.Publish(context.Background(), sampleEdition()); err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Errorf("Expected writer error, got %v", err)
	}
}

func newTestWeb(t *testing.T) *WebPublisher {
	t.Helper()
	dir, err := sources.Default()
	if err != nil {
		t.Fatalf("sources.Default returned error: %v", err)
	}
	m := metrics.New()
	wp := NewWebPublisher("127.0.0.1:0", feed.New(dir), dir, m, zaptest.NewLogger(t))
	wp.now = func() time.Time { return editionDate }
	return wp
}

func getJSON(t *testing.T, h http.Handler, target string, v any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("GET %s: failed to decode %q: %v", target, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestWebArticlesBeforePublish(t *testing.T) {
	wp := newTestWeb(t)
	var resp articlesResponse
	if code := getJSON(t, wp.Handler(), "/api/articles", &resp); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if resp.Count != 0 || resp.Generation != 0 {
		t.Errorf("Expected empty response, got %+v", resp)
	}
}

func TestWebArticlesFilterAndSort(t *testing.T) {
	wp := newTestWeb(t)
	if err := wp.Publish(context.Background(), sampleEdition()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	h := wp.Handler()

	var resp articlesResponse
	getJSON(t, h, "/api/articles?sort=source-priority", &resp)
	if resp.Count != 3 || resp.Generation != 3 {
		t.Fatalf("Unexpected response header: count=%d gen=%d", resp.Count, resp.Generation)
	}
	if resp.Articles[0].Source != "Wall Street Journal" {
		t.Errorf("Expected priority-1 source first, got %q", resp.Articles[0].Source)
	}

	getJSON(t, h, "/api/articles?source=WYPR&q=weather", &resp)
	if resp.Count != 1 || resp.Articles[0].ID != "src-weather" {
		t.Errorf("Unexpected filtered response %+v", resp)
	}

	getJSON(t, h, "/api/articles?category=national-cybersecurity", &resp)
	if resp.Count != 0 || resp.Articles == nil {
		t.Errorf("Expected empty non-nil articles, got %+v", resp)
	}

	var errResp errorResponse
	if code := getJSON(t, h, "/api/articles?range=forever", &errResp); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad range, got %d", code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `curator_filter_queries_total{sort="source-priority"} 1`) {
		t.Errorf("Expected filter query metric, got:\n%s", rec.Body.String())
	}
}

func TestWebFacetsSourcesCategories(t *testing.T) {
	wp := newTestWeb(t)
	wp.Publish(context.Background(), sampleEdition())
	h := wp.Handler()

	var facets feed.Facets
	getJSON(t, h, "/api/facets", &facets)
	if strings.Join(facets.Authors, ",") != "Ann,Bob" {
		t.Errorf("Unexpected authors facet %v", facets.Authors)
	}

	var srcs []sources.Source
	getJSON(t, h, "/api/sources", &srcs)
	if len(srcs) != 14 || srcs[0].Priority != 1 {
		t.Errorf("Unexpected sources response: %d entries", len(srcs))
	}

	var cats []categoryInfo
	getJSON(t, h, "/api/categories", &cats)
	if len(cats) != 8 || cats[0].ID != article.CategoryAll {
		t.Errorf("Unexpected categories %+v", cats)
	}

	var health healthResponse
	getJSON(t, h, "/healthz", &health)
	if health.Status != "ok" || health.Articles != 3 || health.Generation != 3 {
		t.Errorf("Unexpected health %+v", health)
	}
}

func TestWebIndex(t *testing.T) {
	wp := newTestWeb(t)
	h := wp.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "No articles available yet") {
		t.Error("Expected placeholder before first publish")
	}

	wp.Publish(context.Background(), sampleEdition())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?tag=quantum", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Quantum lab opens") || strings.Contains(body, "Weekend weather") {
		t.Errorf("Expected filtered listing, got:\n%s", body)
	}
	if !strings.Contains(body, "National Quantum") {
		t.Error("Expected category label in listing")
	}
}

func TestWebRefresh(t *testing.T) {
	wp := newTestWeb(t)
	h := wp.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501 without refresh func, got %d", rec.Code)
	}

	wp.SetRefreshFunc(func(ctx context.Context) (int, error) { return 12, nil })
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"articles":12`) {
		t.Errorf("Unexpected refresh response %d %s", rec.Code, rec.Body.String())
	}

	wp.SetRefreshFunc(func(ctx context.Context) (int, error) { return 0, errors.New("no live data") })
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 on refresh failure, got %d", rec.Code)
	}
}

func TestWebStartShutdown(t *testing.T) {
	wp := newTestWeb(t)
	if err := wp.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := wp.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestNewPublisher(t *testing.T) {
	tests := []struct {
		cfg  config.PublisherConfig
		want string
	}{
		{config.PublisherConfig{Type: "stdout"}, "*publisher.StdoutPublisher"},
		{config.PublisherConfig{Type: "web", Web: config.WebConfig{Addr: ":0"}}, "*publisher.WebPublisher"},
		{config.PublisherConfig{Type: "discord", Discord: config.DiscordConfig{WebhookURL: "http://x"}}, "*publisher.DiscordPublisher"},
		{config.PublisherConfig{Type: "email", Email: config.EmailConfig{SMTPHost: "h", SMTPPort: 25}}, "*publisher.EmailPublisher"},
		{config.PublisherConfig{Type: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}}, "*publisher.KafkaPublisher"},
	}
	for _, tt := range tests {
		p, err := New(tt.cfg, Deps{})
		if err != nil {
			t.Fatalf("New(%s) returned error: %v", tt.cfg.Type, err)
		}
		if got := fmt.Sprintf("%T", p); got != tt.want {
			t.Errorf("New(%s) = %s, want %s", tt.cfg.Type, got, tt.want)
		}
	}

	if _, err := New(config.PublisherConfig{Type: "fax"}, Deps{}); err == nil {
		t.Error("Expected error for unsupported type")
	}
}
