package planner

import (
	"reflect"
	"testing"

	"github.com/ryosukesatoh/news-curator/internal/sources"
)

func TestDefaultPlan(t *testing.T) {
	plan := New(DefaultConfig(), nil).Plan()

	want := []string{"cybersecurity", "quantum", "Maryland", "Baltimore", "Steve Hershey"}
	if got := Terms(plan); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected terms %v, got %v", want, got)
	}
	for _, q := range plan {
		if q.Channel != ChannelNewsAPI {
			t.Errorf("Expected channel %q for %q, got %q", ChannelNewsAPI, q.Term, q.Channel)
		}
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeRegional = true
	p := New(cfg, nil)
	if !reflect.DeepEqual(p.Plan(), p.Plan()) {
		t.Error("Expected identical plans across calls")
	}
}

func TestPlanDedupesPerChannel(t *testing.T) {
	cfg := Config{
		Topics:          []string{"Quantum", "quantum ", "  "},
		Entities:        []string{"QUANTUM"},
		RegionalQueries: []string{"quantum"},
		IncludeRegional: true,
	}
	plan := New(cfg, nil).Plan()

	want := []Query{
		{Term: "Quantum", Channel: ChannelNewsAPI},
		{Term: "quantum", Channel: ChannelNewsAPIMaryland},
	}
	if !reflect.DeepEqual(plan, want) {
		t.Errorf("Expected %v, got %v", want, plan)
	}
}

func TestPlanRegional(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeRegional = true
	plan := New(cfg, nil).Plan()

	if len(plan) != 15 {
		t.Fatalf("Expected 15 queries, got %d", len(plan))
	}
	// "Steve Hershey" appears in both lists but on different channels.
	last := plan[len(plan)-1]
	if last.Term != "Eastern Shore" || last.Channel != ChannelNewsAPIMaryland {
		t.Errorf("Unexpected last query: %+v", last)
	}
}

func TestPlanRSS(t *testing.T) {
	dir, err := sources.New([]sources.Source{
		{Name: "WYPR", Priority: 1, FeedURL: "https://www.wypr.org/rss.xml"},
		{Name: "Cecil Whig", Priority: 2},
	})
	if err != nil {
		t.Fatalf("sources.New returned error: %v", err)
	}
	plan := New(Config{IncludeRSS: true}, dir).Plan()

	want := []Query{{Term: "WYPR", Channel: ChannelRSS}}
	if !reflect.DeepEqual(plan, want) {
		t.Errorf("Expected %v, got %v", want, plan)
	}
}
