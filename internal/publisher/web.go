package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/feed"
	"github.com/ryosukesatoh/news-curator/internal/logger"
	"github.com/ryosukesatoh/news-curator/internal/metrics"
	"github.com/ryosukesatoh/news-curator/internal/sources"
)

// RefreshFunc triggers a fetch cycle and returns the installed corpus size.
type RefreshFunc func(ctx context.Context) (int, error)

// WebPublisher serves the latest corpus over HTTP: a JSON feed API backed by
// the filter engine and a plain HTML listing.
type WebPublisher struct {
	addr    string
	server  *http.Server
	engine  *feed.Engine
	dir     *sources.Directory
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	latest  *Edition
	refresh RefreshFunc
}

type articlesResponse struct {
	feed.Result
	Generation uint64    `json:"generation"`
	FetchedAt  time.Time `json:"fetched_at"`
}

type categoryInfo struct {
	ID    article.Category `json:"id"`
	Label string           `json:"label"`
}

type healthResponse struct {
	Status     string    `json:"status"`
	Generation uint64    `json:"generation"`
	Articles   int       `json:"articles"`
	FetchedAt  time.Time `json:"fetched_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewWebPublisher(addr string, engine *feed.Engine, dir *sources.Directory, m *metrics.Metrics, log *zap.Logger) *WebPublisher {
	if engine == nil {
		var lookup feed.PriorityLookup
		if dir != nil {
			lookup = dir
		}
		engine = feed.New(lookup)
	}
	wp := &WebPublisher{
		addr:    addr,
		engine:  engine,
		dir:     dir,
		metrics: m,
		log:     logger.OrNop(log).Named("web"),
		now:     time.Now,
	}
	wp.server = &http.Server{
		Addr:              addr,
		Handler:           wp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return wp
}

// Handler returns the HTTP routes. It is exposed for tests and embedding.
func (wp *WebPublisher) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", wp.handleIndex)
	mux.HandleFunc("GET /api/articles", wp.handleArticles)
	mux.HandleFunc("GET /api/facets", wp.handleFacets)
	mux.HandleFunc("GET /api/sources", wp.handleSources)
	mux.HandleFunc("GET /api/categories", wp.handleCategories)
	mux.HandleFunc("POST /api/refresh", wp.handleRefresh)
	mux.HandleFunc("GET /healthz", wp.handleHealth)
	if wp.metrics != nil {
		mux.Handle("GET /metrics", wp.metrics.Handler())
	}
	return mux
}

// SetRefreshFunc enables POST /api/refresh.
func (wp *WebPublisher) SetRefreshFunc(fn RefreshFunc) {
	wp.mu.Lock()
	wp.refresh = fn
	wp.mu.Unlock()
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	go func() {
		wp.log.Info("web publisher listening", zap.String("addr", ln.Addr().String()))
		if err := wp.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wp.log.Error("web publisher stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.server.Shutdown(ctx)
}

func (wp *WebPublisher) Publish(_ context.Context, edition *Edition) error {
	wp.mu.Lock()
	wp.latest = edition
	wp.mu.Unlock()
	wp.log.Info("web publisher updated",
		zap.Uint64("generation", edition.Snapshot.Generation),
		zap.Int("articles", len(edition.Snapshot.Articles)))
	return nil
}

func (wp *WebPublisher) current() *Edition {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.latest
}

func (wp *WebPublisher) corpus() ([]article.Article, uint64, time.Time) {
	e := wp.current()
	if e == nil || e.Snapshot == nil {
		return []article.Article{}, 0, time.Time{}
	}
	return e.Snapshot.Articles, e.Snapshot.Generation, e.Snapshot.FetchedAt
}

func (wp *WebPublisher) handleArticles(w http.ResponseWriter, r *http.Request) {
	fs, err := feed.FilterStateFromQuery(r.URL.Query(), wp.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	articles, gen, fetchedAt := wp.corpus()
	result := wp.engine.Apply(articles, fs)
	wp.metrics.ObserveFilterQuery(string(fs.Sort.Normalize()))
	writeJSON(w, http.StatusOK, articlesResponse{Result: result, Generation: gen, FetchedAt: fetchedAt})
}

func (wp *WebPublisher) handleFacets(w http.ResponseWriter, r *http.Request) {
	articles, _, _ := wp.corpus()
	writeJSON(w, http.StatusOK, feed.FacetsOf(articles))
}

func (wp *WebPublisher) handleSources(w http.ResponseWriter, r *http.Request) {
	if wp.dir == nil {
		writeJSON(w, http.StatusOK, []sources.Source{})
		return
	}
	writeJSON(w, http.StatusOK, wp.dir.All())
}

func (wp *WebPublisher) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := []categoryInfo{{ID: article.CategoryAll, Label: article.CategoryAll.Label()}}
	for _, c := range article.Categories() {
		out = append(out, categoryInfo{ID: c, Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (wp *WebPublisher) handleHealth(w http.ResponseWriter, r *http.Request) {
	articles, gen, fetchedAt := wp.corpus()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Generation: gen, Articles: len(articles), FetchedAt: fetchedAt})
}

func (wp *WebPublisher) handleRefresh(w http.ResponseWriter, r *http.Request) {
	wp.mu.RLock()
	refresh := wp.refresh
	wp.mu.RUnlock()
	if refresh == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "refresh is not enabled"})
		return
	}
	n, err := refresh(r.Context())
	if err != nil {
		wp.log.Warn("manual refresh failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"articles": n})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Maryland News Curator</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
.article { border-bottom: 1px solid #eee; padding: 10px 0; }
.meta { color: #666; font-size: 0.85em; }
.tag { background: #f0f0f0; border-radius: 4px; padding: 1px 6px; margin-right: 4px; font-size: 0.8em; }
</style></head><body>
<h1>Maryland News Curator</h1>
{{if .Empty}}<p>No articles available yet. Check back later.</p>{{else}}
<p class="meta">{{.Count}} articles &middot; updated {{.Updated}}</p>
{{range .Articles}}<div class="article">
<a href="{{.URL}}">{{.Title}}</a>
<div class="meta">{{.Source}} &middot; {{.Author}} &middot; {{.PublishDate.Format "Jan 2, 2006 15:04"}} &middot; {{.Category.Label}}</div>
{{if .Summary}}<p>{{.Summary}}</p>{{end}}
<div>{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>
</div>{{end}}{{end}}
</body></html>`))

func (wp *WebPublisher) handleIndex(w http.ResponseWriter, r *http.Request) {
	fs, err := feed.FilterStateFromQuery(r.URL.Query(), wp.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	articles, gen, fetchedAt := wp.corpus()
	result := wp.engine.Apply(articles, fs)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Empty    bool
		Count    int
		Updated  string
		Articles []article.Article
	}{
		Empty:    gen == 0,
		Count:    result.Count,
		Updated:  fetchedAt.Format("2006-01-02 15:04 MST"),
		Articles: result.Articles,
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		wp.log.Warn("render index", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
