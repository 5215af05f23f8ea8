package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ryosukesatoh/news-curator/internal/classify"
	"github.com/ryosukesatoh/news-curator/internal/config"
	"github.com/ryosukesatoh/news-curator/internal/corpus"
	"github.com/ryosukesatoh/news-curator/internal/feed"
	"github.com/ryosukesatoh/news-curator/internal/fetcher"
	"github.com/ryosukesatoh/news-curator/internal/logger"
	"github.com/ryosukesatoh/news-curator/internal/metrics"
	"github.com/ryosukesatoh/news-curator/internal/normalize"
	"github.com/ryosukesatoh/news-curator/internal/planner"
	"github.com/ryosukesatoh/news-curator/internal/publisher"
	"github.com/ryosukesatoh/news-curator/internal/runner"
	"github.com/ryosukesatoh/news-curator/internal/sources"
	"github.com/ryosukesatoh/news-curator/internal/store"
)

// app is the wired process: one corpus, one runner and its publishers.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	dir     *sources.Directory
	engine  *feed.Engine
	metrics *metrics.Metrics
	store   store.Store
	runner  *runner.Runner
	web     []*publisher.WebPublisher
	closers []func() error
}

// newApp loads the config at path and wires every component. Publishers are
// built only when withPublishers is set.
func newApp(path string, withPublishers bool) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	dir, err := sources.Load(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		dir:    dir,
		engine: feed.New(dir),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}
	if st != nil {
		a.store = st
		a.closers = append(a.closers, st.Close)
	}

	var pubs []publisher.Publisher
	if withPublishers {
		deps := publisher.Deps{Engine: a.engine, Directory: dir, Metrics: a.metrics, Logger: log}
		for _, pc := range cfg.Publishers {
			p, err := publisher.New(pc, deps)
			if err != nil {
				a.close()
				return nil, err
			}
			switch p := p.(type) {
			case *publisher.WebPublisher:
				a.web = append(a.web, p)
			case *publisher.KafkaPublisher:
				a.closers = append(a.closers, p.Close)
			}
			pubs = append(pubs, p)
		}
	}

	a.runner = runner.New(runner.Options{
		Planner:    planner.New(cfg.PlannerSettings(), dir),
		Fetchers:   buildFetchers(cfg, dir),
		Normalizer: normalize.New(),
		Classifier: classify.New(cfg.Taxonomy),
		Corpus:     corpus.New(),
		Store:      a.store,
		Publishers: pubs,
		Metrics:    a.metrics,
		Logger:     log,
		Search: runner.Search{
			Language: cfg.Language,
			SortHint: cfg.SortHint,
			PageSize: cfg.PageSize,
		},
		MaxConcurrent:  cfg.MaxConcurrentFetches,
		RefreshTimeout: cfg.RefreshTimeout,
		DigestTitle:    cfg.Digest.Title,
		DigestSize:     cfg.Digest.PerSection,
	})

	for _, wp := range a.web {
		wp.SetRefreshFunc(func(ctx context.Context) (int, error) {
			snap, err := a.runner.RefreshShared(ctx)
			if err != nil {
				return 0, err
			}
			return len(snap.Articles), nil
		})
	}
	return a, nil
}

// buildFetchers registers one fetcher per enabled channel. Both NewsAPI
// channels share a client.
func buildFetchers(cfg *config.Config, dir *sources.Directory) *fetcher.Registry {
	reg := fetcher.NewRegistry()
	if cfg.NewsAPI.IsEnabled() {
		na := fetcher.NewNewsAPIFetcher(cfg.NewsAPI.BaseURL, cfg.NewsAPI.APIKey, cfg.NewsAPI.Timeout)
		reg.Register(planner.ChannelNewsAPI, na)
		reg.Register(planner.ChannelNewsAPIMaryland, na)
	}
	if cfg.RSS.Enabled {
		reg.Register(planner.ChannelRSS, fetcher.NewRSSFetcher(dir, cfg.RSS.Timeout))
	}
	return reg
}

// restore installs the persisted snapshot and hands it to the web publishers
// so they serve it before the first refresh.
func (a *app) restore(ctx context.Context) (*corpus.Snapshot, error) {
	snap, err := a.runner.Restore(ctx)
	if err != nil || snap == nil {
		return snap, err
	}
	edition := a.runner.Edition(snap)
	for _, wp := range a.web {
		if err := wp.Publish(ctx, edition); err != nil {
			a.log.Warn("failed to seed web publisher", zap.Error(err))
		}
	}
	return snap, nil
}

// metricsServer returns the standalone /metrics server, or nil when metrics
// are disabled.
func (a *app) metricsServer() *http.Server {
	if a.metrics == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", a.metrics.Handler())
	return &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.log.Sync()
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
