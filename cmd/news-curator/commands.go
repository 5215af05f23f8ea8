package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/news-curator/internal/feed"
	"github.com/ryosukesatoh/news-curator/internal/planner"
)

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Aliases: []string{"once"},
	Short:   "Run one refresh cycle, publish it and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, true)
		if err != nil {
			return err
		}
		defer a.close()
		return fetchOnce(cmd.Context(), a, cmd.ErrOrStderr())
	},
}

func fetchOnce(ctx context.Context, a *app, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Restoring first keeps generations increasing across runs.
	if _, err := a.runner.Restore(ctx); err != nil {
		return err
	}
	snap, err := a.runner.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Installed generation %d with %d articles\n", snap.Generation, len(snap.Articles))
	return nil
}

var queryFlags struct {
	category string
	sources  []string
	search   string
	from     string
	to       string
	rangeKey string
	authors  []string
	tags     []string
	sort     string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter and sort the stored corpus",
	Long:  "query loads the last persisted corpus and prints the filtered, sorted result as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		return runQuery(cmd.Context(), a, queryValues(), time.Now(), cmd.OutOrStdout())
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.category, "category", "", "category id (default all)")
	f.StringSliceVar(&queryFlags.sources, "source", nil, "source name, repeatable")
	f.StringVar(&queryFlags.search, "q", "", "text to search in title, summary, source and tags")
	f.StringVar(&queryFlags.from, "from", "", "earliest publish date (YYYY-MM-DD or RFC 3339)")
	f.StringVar(&queryFlags.to, "to", "", "latest publish date (YYYY-MM-DD or RFC 3339)")
	f.StringVar(&queryFlags.rangeKey, "range", "", "quick range: 1d, 3d, 1w, 1m or all")
	f.StringSliceVar(&queryFlags.authors, "author", nil, "author name, repeatable")
	f.StringSliceVar(&queryFlags.tags, "tag", nil, "tag, repeatable")
	f.StringVar(&queryFlags.sort, "sort", string(feed.SortNewest), "date-desc, date-asc, source-priority or relevance")
}

// queryValues maps the flags onto the same parameters the web API reads.
func queryValues() url.Values {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set("category", queryFlags.category)
	set("q", queryFlags.search)
	set("from", queryFlags.from)
	set("to", queryFlags.to)
	set("range", queryFlags.rangeKey)
	set("sort", queryFlags.sort)
	for _, s := range queryFlags.sources {
		q.Add("source", s)
	}
	for _, s := range queryFlags.authors {
		q.Add("author", s)
	}
	for _, s := range queryFlags.tags {
		q.Add("tag", s)
	}
	return q
}

func runQuery(ctx context.Context, a *app, q url.Values, now time.Time, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fs, err := feed.FilterStateFromQuery(q, now)
	if err != nil {
		return err
	}
	snap, err := a.runner.Restore(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no stored corpus; run fetch first")
	}

	res := a.engine.Apply(snap.Articles, fs)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Print the query plan the next refresh would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		printPlan(cmd.OutOrStdout(), planner.New(a.cfg.PlannerSettings(), a.dir).Plan())
		return nil
	},
}

func printPlan(w io.Writer, plan []planner.Query) {
	width := 0
	for _, q := range plan {
		width = max(width, len(q.Channel))
	}
	for _, q := range plan {
		fmt.Fprintf(w, "%-*s  %s\n", width, q.Channel, q.Term)
	}
	fmt.Fprintf(w, "%s\n%d queries\n", strings.Repeat("-", width), len(plan))
}
