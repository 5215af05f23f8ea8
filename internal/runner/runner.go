package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/classify"
	"github.com/ryosukesatoh/news-curator/internal/corpus"
	"github.com/ryosukesatoh/news-curator/internal/dedupe"
	"github.com/ryosukesatoh/news-curator/internal/digest"
	"github.com/ryosukesatoh/news-curator/internal/fetcher"
	"github.com/ryosukesatoh/news-curator/internal/logger"
	"github.com/ryosukesatoh/news-curator/internal/metrics"
	"github.com/ryosukesatoh/news-curator/internal/normalize"
	"github.com/ryosukesatoh/news-curator/internal/planner"
	"github.com/ryosukesatoh/news-curator/internal/publisher"
	"github.com/ryosukesatoh/news-curator/internal/store"
)

// ErrNoLiveData is returned when every query of a cycle failed. The
// previously installed corpus is left in place.
var ErrNoLiveData = errors.New("no live data available")

// ErrEmptyPlan is returned when the configuration yields no queries at all,
// for example RSS only with no outlet carrying a feed URL.
var ErrEmptyPlan = errors.New("query plan is empty")

// Search holds the parameters sent with every upstream query.
type Search struct {
	Language string
	SortHint string
	PageSize int
}

// Options wires a Runner. Planner, Fetchers, Normalizer, Classifier and
// Corpus are required; the rest may be left zero.
type Options struct {
	Planner    *planner.Planner
	Fetchers   *fetcher.Registry
	Normalizer *normalize.Normalizer
	Classifier *classify.Classifier
	Corpus     *corpus.Corpus
	Store      store.Store
	Publishers []publisher.Publisher
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	Search         Search
	MaxConcurrent  int
	RefreshTimeout time.Duration
	DigestTitle    string
	DigestSize     int
}

// Runner orchestrates the fetch -> normalize -> classify -> dedupe -> publish
// cycle.
type Runner struct {
	opts  Options
	log   *zap.Logger
	now   func() time.Time
	group singleflight.Group
}

// termResult is one query's contribution, kept in plan order.
type termResult struct {
	raws []article.RawArticle
	err  error
}

func New(opts Options) *Runner {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Runner{
		opts: opts,
		log:  logger.OrNop(opts.Logger).Named("runner"),
		now:  time.Now,
	}
}

// Corpus returns the corpus the runner installs into.
func (r *Runner) Corpus() *corpus.Corpus {
	return r.opts.Corpus
}

// Run executes one fetch cycle, joining any cycle already in flight.
func (r *Runner) Run(ctx context.Context) error {
	_, err := r.RefreshShared(ctx)
	return err
}

// RefreshShared is Refresh with concurrent callers coalesced into one cycle.
// The cycle does not inherit the first caller's cancellation, so one caller
// leaving cannot truncate the corpus the others receive. RefreshTimeout still
// bounds it.
func (r *Runner) RefreshShared(ctx context.Context) (*corpus.Snapshot, error) {
	v, err, shared := r.group.Do("refresh", func() (any, error) {
		return r.Refresh(context.WithoutCancel(ctx))
	})
	if shared {
		r.log.Debug("joined in-flight refresh")
	}
	if err != nil {
		return nil, err
	}
	return v.(*corpus.Snapshot), nil
}

// Refresh runs one complete cycle and returns the snapshot it installed. If a
// newer cycle installed first, the result is discarded and the newer snapshot
// is returned instead.
func (r *Runner) Refresh(ctx context.Context) (*corpus.Snapshot, error) {
	start := r.now()
	gen := r.opts.Corpus.NextGeneration()
	if r.opts.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RefreshTimeout)
		defer cancel()
	}

	plan := r.opts.Planner.Plan()
	if len(plan) == 0 {
		r.log.Error("no queries to run, check the planner and rss settings")
		return nil, fmt.Errorf("runner: %w", ErrEmptyPlan)
	}
	r.log.Info("starting refresh", zap.Uint64("generation", gen), zap.Int("queries", len(plan)))

	results := r.fetchAll(ctx, plan)

	// Merge in plan order so first-wins dedup does not depend on which
	// fetch finished first.
	var normalized []article.Article
	failed := 0
	for i, res := range results {
		q := plan[i]
		if res.err != nil {
			failed++
			r.logTermFailure(q, res.err)
			continue
		}
		for _, raw := range res.raws {
			normalized = append(normalized, r.opts.Normalizer.NormalizeAt(raw, q.Channel, start))
		}
	}

	if failed == len(plan) {
		r.opts.Metrics.ObserveRefresh(metrics.RefreshStale, r.now().Sub(start))
		r.log.Error("all upstream queries failed, keeping previous corpus",
			zap.Int("queries", len(plan)),
			zap.Uint64("kept_generation", r.opts.Corpus.Current().Generation))
		return nil, fmt.Errorf("runner: %d of %d queries failed: %w", failed, len(plan), ErrNoLiveData)
	}

	classified := r.opts.Classifier.ApplyAll(normalized)
	articles := dedupe.Dedupe(classified)
	r.opts.Metrics.AddDuplicates(len(classified) - len(articles))

	fetchedAt := r.now()
	if !r.opts.Corpus.Replace(gen, fetchedAt, articles) {
		r.opts.Metrics.ObserveRefresh(metrics.RefreshDiscarded, fetchedAt.Sub(start))
		r.log.Info("discarding stale refresh",
			zap.Uint64("generation", gen),
			zap.Uint64("installed", r.opts.Corpus.Current().Generation))
		return r.opts.Corpus.Current(), nil
	}
	snap := &corpus.Snapshot{Generation: gen, FetchedAt: fetchedAt, Articles: articles}

	r.opts.Metrics.SetCorpusSize(len(snap.Articles))
	r.log.Info("corpus installed",
		zap.Uint64("generation", gen),
		zap.Int("fetched", len(classified)),
		zap.Int("articles", len(snap.Articles)),
		zap.Int("failed_queries", failed))

	if r.opts.Store != nil {
		if err := r.opts.Store.Save(ctx, snap); err != nil {
			r.log.Warn("failed to persist snapshot", zap.Error(err))
		}
	}

	err := r.publish(ctx, r.Edition(snap))
	r.opts.Metrics.ObserveRefresh(metrics.RefreshOK, r.now().Sub(start))
	return snap, err
}

func (r *Runner) fetchAll(ctx context.Context, plan []planner.Query) []termResult {
	results := make([]termResult, len(plan))
	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrent)
	for i, q := range plan {
		i, q := i, q
		g.Go(func() error {
			results[i] = r.fetchOne(ctx, q)
			return nil
		})
	}
	g.Wait()
	return results
}

func (r *Runner) fetchOne(ctx context.Context, q planner.Query) termResult {
	f, err := r.opts.Fetchers.Get(q.Channel)
	if err != nil {
		return termResult{err: err}
	}
	raws, err := f.Search(ctx, fetcher.SearchParams{
		Term:     q.Term,
		Language: r.opts.Search.Language,
		SortHint: r.opts.Search.SortHint,
		PageSize: r.opts.Search.PageSize,
	})
	r.opts.Metrics.ObserveUpstream(q.Channel, err)
	return termResult{raws: raws, err: err}
}

func (r *Runner) logTermFailure(q planner.Query, err error) {
	fields := []zap.Field{zap.String("term", q.Term), zap.String("channel", q.Channel)}
	var upErr *fetcher.UpstreamError
	if errors.As(err, &upErr) {
		fields = append(fields, zap.String("status", upErr.Status), zap.String("message", upErr.Message))
	} else {
		fields = append(fields, zap.Error(err))
	}
	r.log.Warn("upstream query failed", fields...)
}

// Edition builds the publisher input for snap.
func (r *Runner) Edition(snap *corpus.Snapshot) *publisher.Edition {
	return &publisher.Edition{
		Snapshot: snap,
		Digest:   digest.Build(r.opts.DigestTitle, snap.FetchedAt, snap.Articles, r.opts.DigestSize),
	}
}

// publish continues with other publishers even if one fails and returns an
// error only when all of them failed.
func (r *Runner) publish(ctx context.Context, edition *publisher.Edition) error {
	var publishErrors []error
	for _, pub := range r.opts.Publishers {
		if err := pub.Publish(ctx, edition); err != nil {
			publishErrors = append(publishErrors, fmt.Errorf("publish via %T failed: %w", pub, err))
			r.log.Warn("publisher failed", zap.String("publisher", fmt.Sprintf("%T", pub)), zap.Error(err))
		} else {
			r.log.Debug("published", zap.String("publisher", fmt.Sprintf("%T", pub)))
		}
	}

	if len(publishErrors) == len(r.opts.Publishers) && len(r.opts.Publishers) > 0 {
		return fmt.Errorf("runner: all publishers failed: %w", errors.Join(publishErrors...))
	}
	if len(publishErrors) > 0 {
		r.log.Warn("refresh completed with publisher failures",
			zap.Int("failed", len(publishErrors)), zap.Int("publishers", len(r.opts.Publishers)))
	}
	return nil
}

// Restore installs the persisted snapshot, if any, so the corpus is
// stale-but-present before the first refresh. It returns nil when nothing is
// stored.
func (r *Runner) Restore(ctx context.Context) (*corpus.Snapshot, error) {
	if r.opts.Store == nil {
		return nil, nil
	}
	snap, err := r.opts.Store.Load(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runner: restore: %w", err)
	}
	if !r.opts.Corpus.Restore(*snap) {
		return r.opts.Corpus.Current(), nil
	}
	r.opts.Metrics.SetCorpusSize(len(snap.Articles))
	r.log.Info("restored snapshot",
		zap.Uint64("generation", snap.Generation),
		zap.Time("fetched_at", snap.FetchedAt),
		zap.Int("articles", len(snap.Articles)))
	return r.opts.Corpus.Current(), nil
}
