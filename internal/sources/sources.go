// Package sources holds the SourceDirectory: the static table of outlets with
// their display priority. It is loaded once at startup and never mutated.
package sources

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_sources.yaml
var defaultSourcesYAML []byte

// UnknownPriority is the sort key used for outlets missing from the directory.
// It is larger than any real priority.
const UnknownPriority = math.MaxInt

// ErrDuplicateSource is returned when two entries share a name.
var ErrDuplicateSource = errors.New("duplicate source name")

// Source is one SourceDirectory entry.
type Source struct {
	Name     string `yaml:"name" json:"name"`
	Priority int    `yaml:"priority" json:"priority"`
	Category string `yaml:"category" json:"category"`
	HomeURL  string `yaml:"url" json:"url"`
	FeedURL  string `yaml:"feed_url,omitempty" json:"feed_url,omitempty"`
}

type directoryFile struct {
	Sources []Source `yaml:"sources"`
}

// Directory is a read-only, ordered outlet table.
type Directory struct {
	entries []Source
	byName  map[string]Source
}

// New validates entries and builds a Directory. Entry order is preserved.
func New(entries []Source) (*Directory, error) {
	d := &Directory{
		entries: make([]Source, 0, len(entries)),
		byName:  make(map[string]Source, len(entries)),
	}
	for i, s := range entries {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("sources: entry %d: name is required", i)
		}
		if s.Priority < 1 {
			return nil, fmt.Errorf("sources: %q: priority must be >= 1, got %d", s.Name, s.Priority)
		}
		if _, exists := d.byName[s.Name]; exists {
			return nil, fmt.Errorf("sources: %w: %q", ErrDuplicateSource, s.Name)
		}
		d.entries = append(d.entries, s)
		d.byName[s.Name] = s
	}
	return d, nil
}

// Default returns the built-in directory.
func Default() (*Directory, error) {
	return parse(defaultSourcesYAML, "embedded directory")
}

// Load reads a directory from a YAML file. An empty path yields Default.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: failed to read %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, name string) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sources: failed to parse %s: %w", name, err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources: %s contains no sources", name)
	}
	return New(f.Sources)
}

// All returns a copy of the entries in directory order.
func (d *Directory) All() []Source {
	out := make([]Source, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns the entry for an outlet name.
func (d *Directory) Lookup(name string) (Source, bool) {
	s, ok := d.byName[name]
	return s, ok
}

// Priority returns the outlet's priority, or UnknownPriority when the outlet
// is not listed.
func (d *Directory) Priority(name string) int {
	if s, ok := d.byName[name]; ok {
		return s.Priority
	}
	return UnknownPriority
}

// WithFeeds returns the entries that publish an RSS feed, in directory order.
func (d *Directory) WithFeeds() []Source {
	var out []Source
	for _, s := range d.entries {
		if s.FeedURL != "" {
			out = append(out, s)
		}
	}
	return out
}
