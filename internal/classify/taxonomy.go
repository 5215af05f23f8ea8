package classify

import "github.com/ryosukesatoh/news-curator/internal/article"

// Entity is a watched named entity whose matches get their own category.
type Entity struct {
	Category article.Category `yaml:"category"`
	Terms    []string         `yaml:"terms"`
}

// Taxonomy is the keyword configuration the Classifier matches against.
type Taxonomy struct {
	Cybersecurity []string `yaml:"cybersecurity"`
	Quantum       []string `yaml:"quantum"`
	Geographic    []string `yaml:"geographic"`
	// Race terms select the gubernatorial category but are not emitted as tags.
	Race     []string `yaml:"race"`
	Entities []Entity `yaml:"entities"`
}

// DefaultTaxonomy returns the built-in keyword lists.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Cybersecurity: []string{
			"cybersecurity", "cyber security", "cyber attack", "data breach",
			"hacking", "malware", "ransomware", "phishing", "security breach",
			"information security", "network security", "cyber defense",
			"cyber threat", "digital security",
		},
		Quantum: []string{
			"quantum", "quantum computing", "quantum technology",
			"quantum cryptography", "quantum algorithm", "quantum processor",
			"quantum supremacy", "quantum entanglement", "quantum mechanics",
			"quantum physics", "post-quantum", "quantum resistant",
		},
		Geographic: []string{"maryland", "baltimore", "annapolis"},
		Race:       []string{"gubernatorial", "governor"},
		Entities: []Entity{
			{
				Category: article.SteveHershey,
				Terms: []string{
					"steve hershey", "hershey", "maryland gubernatorial",
					"gubernatorial race", "governor maryland", "maryland governor",
					"eastern shore", "kent county",
				},
			},
		},
	}
}

// Merge fills empty lists in t from def.
func (t Taxonomy) Merge(def Taxonomy) Taxonomy {
	if len(t.Cybersecurity) == 0 {
		t.Cybersecurity = def.Cybersecurity
	}
	if len(t.Quantum) == 0 {
		t.Quantum = def.Quantum
	}
	if len(t.Geographic) == 0 {
		t.Geographic = def.Geographic
	}
	if len(t.Race) == 0 {
		t.Race = def.Race
	}
	if len(t.Entities) == 0 {
		t.Entities = def.Entities
	}
	return t
}
