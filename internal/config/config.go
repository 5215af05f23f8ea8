package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ryosukesatoh/news-curator/internal/classify"
	"github.com/ryosukesatoh/news-curator/internal/planner"
)

type Config struct {
	Language             string            `yaml:"language"`
	PageSize             int               `yaml:"page_size"`
	SortHint             string            `yaml:"sort_hint"`
	Schedule             string            `yaml:"schedule"`
	RunOnStart           bool              `yaml:"run_on_start"`
	RefreshTimeout       time.Duration     `yaml:"refresh_timeout"`
	MaxConcurrentFetches int               `yaml:"max_concurrent_fetches"`
	SourcesFile          string            `yaml:"sources_file"`
	Log                  LogConfig         `yaml:"log"`
	NewsAPI              NewsAPIConfig     `yaml:"newsapi"`
	RSS                  RSSConfig         `yaml:"rss"`
	Planner              PlannerConfig     `yaml:"planner"`
	Taxonomy             classify.Taxonomy `yaml:"taxonomy"`
	Digest               DigestConfig      `yaml:"digest"`
	Store                StoreConfig       `yaml:"store"`
	Metrics              MetricsConfig     `yaml:"metrics"`
	Publishers           []PublisherConfig `yaml:"publishers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type NewsAPIConfig struct {
	Enabled *bool         `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// IsEnabled reports whether the NewsAPI channels are in use. Unset means yes.
func (c NewsAPIConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type RSSConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type PlannerConfig struct {
	Topics          []string `yaml:"topics"`
	Regions         []string `yaml:"regions"`
	Entities        []string `yaml:"entities"`
	RegionalQueries []string `yaml:"regional_queries"`
	IncludeRegional bool     `yaml:"include_regional"`
}

type DigestConfig struct {
	PerSection int    `yaml:"per_section"`
	Title      string `yaml:"title"`
}

type StoreConfig struct {
	Type  string      `yaml:"type"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type PublisherConfig struct {
	Type    string        `yaml:"type"`
	Email   EmailConfig   `yaml:"email"`
	Web     WebConfig     `yaml:"web"`
	Discord DiscordConfig `yaml:"discord"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// PlannerSettings converts the planner block into planner.Config, filling
// empty lists with the built-in terms.
func (c *Config) PlannerSettings() planner.Config {
	def := planner.DefaultConfig()
	pc := planner.Config{
		Topics:          orDefault(c.Planner.Topics, def.Topics),
		Regions:         orDefault(c.Planner.Regions, def.Regions),
		Entities:        orDefault(c.Planner.Entities, def.Entities),
		RegionalQueries: orDefault(c.Planner.RegionalQueries, def.RegionalQueries),
		IncludeRegional: c.Planner.IncludeRegional,
		IncludeRSS:      c.RSS.Enabled,
	}
	if !c.NewsAPI.IsEnabled() {
		pc.Topics, pc.Regions, pc.Entities, pc.RegionalQueries = nil, nil, nil, nil
		pc.IncludeRegional = false
	}
	return pc
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

var supportedLanguages = map[string]bool{
	"ar": true, "de": true, "en": true, "es": true, "fr": true, "he": true, "it": true,
	"nl": true, "no": true, "pt": true, "ru": true, "sv": true, "ud": true, "zh": true,
}

var supportedSortHints = map[string]bool{"relevancy": true, "popularity": true, "publishedAt": true}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// loadDotEnv loads .env files next to the config and in the working
// directory. Variables already set in the environment win.
func loadDotEnv(configPath string) error {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	seen := make(map[string]bool)
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("config: failed to load %s: %w", abs, err)
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 50
	}
	if cfg.SortHint == "" {
		cfg.SortHint = "publishedAt"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 6,9 * * *"
	}
	if cfg.RefreshTimeout == 0 {
		cfg.RefreshTimeout = 2 * time.Minute
	}
	if cfg.MaxConcurrentFetches == 0 {
		cfg.MaxConcurrentFetches = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.NewsAPI.Timeout == 0 {
		cfg.NewsAPI.Timeout = 30 * time.Second
	}
	if cfg.RSS.Timeout == 0 {
		cfg.RSS.Timeout = 30 * time.Second
	}
	cfg.Taxonomy = cfg.Taxonomy.Merge(classify.DefaultTaxonomy())
	if cfg.Digest.PerSection == 0 {
		cfg.Digest.PerSection = 5
	}
	if cfg.Digest.Title == "" {
		cfg.Digest.Title = "Maryland News Curator"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "bolt"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/curator.db"
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = "localhost:6379"
	}
	if cfg.Store.Redis.Key == "" {
		cfg.Store.Redis.Key = "news-curator:corpus"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if len(cfg.Publishers) == 0 {
		cfg.Publishers = []PublisherConfig{{Type: "stdout"}}
	}
	for i := range cfg.Publishers {
		p := &cfg.Publishers[i]
		if p.Web.Addr == "" {
			p.Web.Addr = ":8080"
		}
		if p.Email.SMTPPort == 0 {
			p.Email.SMTPPort = 587
		}
		if p.Kafka.Topic == "" {
			p.Kafka.Topic = "curated-articles"
		}
	}
}

func validate(cfg *Config) error {
	if !supportedLanguages[cfg.Language] {
		return fmt.Errorf("config: unsupported language %q", cfg.Language)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return fmt.Errorf("config: page_size must be between 1 and 100, got %d", cfg.PageSize)
	}
	if !supportedSortHints[cfg.SortHint] {
		return fmt.Errorf("config: unsupported sort_hint %q (supported: relevancy, popularity, publishedAt)", cfg.SortHint)
	}
	if cfg.MaxConcurrentFetches < 1 {
		return fmt.Errorf("config: max_concurrent_fetches must be positive, got %d", cfg.MaxConcurrentFetches)
	}
	if cfg.RefreshTimeout < 0 {
		return fmt.Errorf("config: refresh_timeout must not be negative")
	}
	if !cfg.NewsAPI.IsEnabled() && !cfg.RSS.Enabled {
		return fmt.Errorf("config: at least one of newsapi or rss must be enabled")
	}
	if cfg.NewsAPI.IsEnabled() && cfg.NewsAPI.APIKey == "" {
		return fmt.Errorf("config: newsapi.api_key is required (set NEWS_API_KEY env var)")
	}
	for i, e := range cfg.Taxonomy.Entities {
		if !e.Category.Valid() {
			return fmt.Errorf("config: taxonomy.entities[%d]: unknown category %q", i, e.Category)
		}
		if len(e.Terms) == 0 {
			return fmt.Errorf("config: taxonomy.entities[%d]: terms must not be empty", i)
		}
	}
	switch cfg.Store.Type {
	case "bolt", "redis", "none":
	default:
		return fmt.Errorf("config: unsupported store type %q (supported: bolt, redis, none)", cfg.Store.Type)
	}
	for i, p := range cfg.Publishers {
		if err := validatePublisher(p); err != nil {
			return fmt.Errorf("config: publishers[%d]: %w", i, err)
		}
	}
	return nil
}

func validatePublisher(p PublisherConfig) error {
	switch p.Type {
	case "stdout", "web":
	case "discord":
		if p.Discord.WebhookURL == "" {
			return fmt.Errorf("discord.webhook_url is required for discord publisher")
		}
	case "email":
		if p.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required for email publisher")
		}
		if len(p.Email.To) == 0 {
			return fmt.Errorf("email.to is required for email publisher")
		}
		if p.Email.From == "" {
			return fmt.Errorf("email.from is required for email publisher")
		}
	case "kafka":
		if len(p.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for kafka publisher")
		}
	default:
		return fmt.Errorf("unsupported publisher type %q (supported: stdout, web, email, discord, kafka)", p.Type)
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
