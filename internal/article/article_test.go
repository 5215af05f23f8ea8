package article

import "testing"

func TestCategoriesExcludeAllSentinel(t *testing.T) {
	cats := Categories()
	if len(cats) != 7 {
		t.Fatalf("Expected 7 categories, got %d", len(cats))
	}
	for _, c := range cats {
		if c == CategoryAll {
			t.Errorf("Categories() must not contain the %q sentinel", CategoryAll)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{MarylandCybersecurity, "MD Cybersecurity"},
		{Gubernatorial, "Gubernatorial Race"},
		{CategoryAll, "All News"},
		{Category("mayoral"), "mayoral"},
	}
	for _, tt := range tests {
		if got := tt.cat.Label(); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("Expected %q to be valid", c)
		}
	}
	for _, c := range []Category{CategoryAll, "", "wes-moore"} {
		if c.Valid() {
			t.Errorf("Expected %q to be invalid", c)
		}
	}
}

func TestHasTag(t *testing.T) {
	a := Article{Tags: []string{"quantum", "maryland"}}
	if !a.HasTag("maryland") {
		t.Error("Expected HasTag(maryland) to be true")
	}
	if a.HasTag("baltimore") {
		t.Error("Expected HasTag(baltimore) to be false")
	}
}
