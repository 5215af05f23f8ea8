package article

import "time"

// UnknownAuthor is recorded when the upstream record carries no author.
const UnknownAuthor = "Unknown"

// Category is the single classification label attached to an Article.
type Category string

const (
	// CategoryAll is the FilterState sentinel meaning "no category restriction".
	// It is never assigned to an Article.
	CategoryAll Category = "all"

	MarylandCybersecurity Category = "maryland-cybersecurity"
	MarylandQuantum       Category = "maryland-quantum"
	NationalCybersecurity Category = "national-cybersecurity"
	NationalQuantum       Category = "national-quantum"
	SteveHershey          Category = "steve-hershey"
	Gubernatorial         Category = "gubernatorial"
	General               Category = "general"
)

// Categories returns the assignable categories in display order.
func Categories() []Category {
	return []Category{
		MarylandCybersecurity,
		MarylandQuantum,
		NationalCybersecurity,
		NationalQuantum,
		SteveHershey,
		Gubernatorial,
		General,
	}
}

// Valid reports whether c can be assigned to an Article.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

var categoryLabels = map[Category]string{
	CategoryAll:           "All News",
	MarylandCybersecurity: "MD Cybersecurity",
	MarylandQuantum:       "MD Quantum",
	NationalCybersecurity: "National Cybersecurity",
	NationalQuantum:       "National Quantum",
	SteveHershey:          "Steve Hershey",
	Gubernatorial:         "Gubernatorial Race",
	General:               "General",
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Article is the canonical, classified news item. Values are treated as
// immutable once built by the pipeline; callers must not modify Tags in place.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	Author      string    `json:"author"`
	PublishDate time.Time `json:"publish_date"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    Category  `json:"category"`
	Tags        []string  `json:"tags"`
	APISource   string    `json:"api_source"`
}

// HasTag reports whether tag is in the article's tag set.
func (a Article) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RawSource is the nested outlet object of an upstream record.
type RawSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawArticle is one loosely-typed upstream record. Every field is optional;
// an absent JSON field or a JSON null decodes to the empty string.
type RawArticle struct {
	Source      RawSource `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt string    `json:"publishedAt"`
	Content     string    `json:"content"`
}
