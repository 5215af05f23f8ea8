package classify

import (
	"reflect"
	"testing"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

func TestClassifyDecisionOrder(t *testing.T) {
	c := New(DefaultTaxonomy())

	tests := []struct {
		name    string
		title   string
		summary string
		want    article.Category
	}{
		{"maryland cyber", "Maryland cybersecurity breach", "", article.MarylandCybersecurity},
		{"maryland quantum", "Quantum computing in Maryland", "", article.MarylandQuantum},
		{"annapolis counts as geographic", "Annapolis agency hit by ransomware", "", article.MarylandCybersecurity},
		{"cyber beats quantum in region", "Baltimore firm offers post-quantum malware scanning", "", article.MarylandCybersecurity},
		{"national cyber", "Ransomware gang arrested", "", article.NationalCybersecurity},
		{"national quantum", "New quantum processor unveiled", "", article.NationalQuantum},
		{"entity", "Hershey announces campaign stops", "", article.SteveHershey},
		{"race", "Governor signs budget", "", article.Gubernatorial},
		{"general", "Orioles win opener", "Fans celebrate", article.General},
		{"summary counts", "Breaking", "A data breach at a Baltimore hospital", article.MarylandCybersecurity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := c.Classify(tt.title, tt.summary)
			if got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.title, tt.summary, got, tt.want)
			}
		})
	}
}

func TestClassifyEntityBeforeRace(t *testing.T) {
	c := New(DefaultTaxonomy())
	// "maryland governor" is an entity term, so it wins over the race rule.
	got, _ := c.Classify("Maryland governor debate set", "")
	if got != article.SteveHershey {
		t.Errorf("Expected %q, got %q", article.SteveHershey, got)
	}
}

func TestClassifyTags(t *testing.T) {
	c := New(DefaultTaxonomy())
	_, tags := c.Classify("Maryland Quantum Computing lab fends off ransomware", "Baltimore researchers say quantum is next")

	want := []string{"ransomware", "quantum", "quantum computing", "maryland", "baltimore"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("Expected tags %v, got %v", want, tags)
	}
}

func TestClassifyTagsEmpty(t *testing.T) {
	c := New(DefaultTaxonomy())
	_, tags := c.Classify("", "")
	if tags == nil || len(tags) != 0 {
		t.Errorf("Expected empty non-nil tags, got %#v", tags)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := New(DefaultTaxonomy())
	cat1, tags1 := c.Classify("Steve Hershey on Eastern Shore cyber threat", "Kent County")
	cat2, tags2 := c.Classify("Steve Hershey on Eastern Shore cyber threat", "Kent County")
	if cat1 != cat2 || !reflect.DeepEqual(tags1, tags2) {
		t.Errorf("Expected identical results, got (%q, %v) and (%q, %v)", cat1, tags1, cat2, tags2)
	}
}

func TestClassifySubstringMatch(t *testing.T) {
	c := New(DefaultTaxonomy())
	// "hacking" is matched inside "whacking".
	got, tags := c.Classify("Weed whacking tips", "")
	if got != article.NationalCybersecurity {
		t.Errorf("Expected substring match to classify as %q, got %q", article.NationalCybersecurity, got)
	}
	if !reflect.DeepEqual(tags, []string{"hacking"}) {
		t.Errorf("Expected tags [hacking], got %v", tags)
	}
}

func TestCustomTaxonomy(t *testing.T) {
	tax := Taxonomy{
		Cybersecurity: []string{"Zero-Day"},
		Geographic:    []string{"Frederick"},
	}.Merge(DefaultTaxonomy())

	c := New(tax)
	got, tags := c.Classify("Frederick county patches zero-day", "")
	if got != article.MarylandCybersecurity {
		t.Errorf("Expected %q, got %q", article.MarylandCybersecurity, got)
	}
	if !reflect.DeepEqual(tags, []string{"zero-day", "frederick"}) {
		t.Errorf("Unexpected tags %v", tags)
	}
	if len(tax.Quantum) == 0 {
		t.Error("Expected Merge to fill quantum keywords from defaults")
	}
}

func TestApplyAll(t *testing.T) {
	c := New(DefaultTaxonomy())
	in := []article.Article{{Title: "Maryland cybersecurity breach"}, {Title: "Quantum computing in Maryland"}}
	out := c.ApplyAll(in)

	if out[0].Category != article.MarylandCybersecurity || out[1].Category != article.MarylandQuantum {
		t.Errorf("Unexpected categories: %q, %q", out[0].Category, out[1].Category)
	}
	if in[0].Category != "" {
		t.Error("Expected input slice to be left untouched")
	}
}
