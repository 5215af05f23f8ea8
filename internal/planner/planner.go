// Package planner builds the bounded list of upstream search queries that
// populate the corpus.
package planner

import (
	"strings"

	"github.com/ryosukesatoh/news-curator/internal/sources"
)

// Upstream channels a query can be routed to.
const (
	ChannelNewsAPI         = "NewsAPI"
	ChannelNewsAPIMaryland = "NewsAPI-Maryland"
	ChannelRSS             = "RSS"
)

// Query is one upstream search. Channel names the fetcher that serves it and
// becomes the provenance tag of every article the query produces.
type Query struct {
	Term    string `json:"term"`
	Channel string `json:"channel"`
}

// Config holds the keyword lists the plan is built from.
type Config struct {
	Topics          []string
	Regions         []string
	Entities        []string
	RegionalQueries []string
	IncludeRegional bool
	IncludeRSS      bool
}

// DefaultConfig returns the core topic, region and entity terms.
func DefaultConfig() Config {
	return Config{
		Topics:          []string{"cybersecurity", "quantum"},
		Regions:         []string{"Maryland", "Baltimore"},
		Entities:        []string{"Steve Hershey"},
		RegionalQueries: DefaultRegionalQueries(),
	}
}

// DefaultRegionalQueries returns the Maryland-focused search terms used when
// the regional plan is enabled.
func DefaultRegionalQueries() []string {
	return []string{
		"Maryland cybersecurity",
		"Maryland quantum",
		"Baltimore cybersecurity",
		"Annapolis news",
		"Maryland gubernatorial",
		"Steve Hershey",
		"Maryland Matters",
		"Baltimore Sun",
		"Maryland politics",
		"Eastern Shore",
	}
}

// Planner produces the query plan. It does no I/O.
type Planner struct {
	cfg Config
	dir *sources.Directory
}

// New creates a Planner. dir may be nil when RSS is disabled.
func New(cfg Config, dir *sources.Directory) *Planner {
	return &Planner{cfg: cfg, dir: dir}
}

// Plan returns the ordered query list: topics, regions and entities on the
// core channel, then regional queries, then one query per RSS outlet. Terms
// are de-duplicated per channel ignoring case; the first spelling wins.
func (p *Planner) Plan() []Query {
	var plan []Query
	seen := make(map[Query]bool)
	add := func(channel, term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := Query{Term: strings.ToLower(term), Channel: channel}
		if seen[key] {
			return
		}
		seen[key] = true
		plan = append(plan, Query{Term: term, Channel: channel})
	}

	for _, group := range [][]string{p.cfg.Topics, p.cfg.Regions, p.cfg.Entities} {
		for _, term := range group {
			add(ChannelNewsAPI, term)
		}
	}
	if p.cfg.IncludeRegional {
		for _, term := range p.cfg.RegionalQueries {
			add(ChannelNewsAPIMaryland, term)
		}
	}
	if p.cfg.IncludeRSS && p.dir != nil {
		for _, s := range p.dir.WithFeeds() {
			add(ChannelRSS, s.Name)
		}
	}
	return plan
}

// Terms returns just the search terms of a plan, in order.
func Terms(plan []Query) []string {
	terms := make([]string, len(plan))
	for i, q := range plan {
		terms[i] = q.Term
	}
	return terms
}
