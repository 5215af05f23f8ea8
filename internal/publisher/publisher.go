package publisher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ryosukesatoh/news-curator/internal/config"
	"github.com/ryosukesatoh/news-curator/internal/corpus"
	"github.com/ryosukesatoh/news-curator/internal/digest"
	"github.com/ryosukesatoh/news-curator/internal/feed"
	"github.com/ryosukesatoh/news-curator/internal/metrics"
	"github.com/ryosukesatoh/news-curator/internal/sources"
)

// Edition is what a fetch cycle hands to publishers: the installed corpus
// and the newsletter built from it.
type Edition struct {
	Snapshot *corpus.Snapshot
	Digest   *digest.Digest
}

// Publisher publishes an edition to some output destination.
type Publisher interface {
	Publish(ctx context.Context, edition *Edition) error
}

// Deps are the shared components some publishers need.
type Deps struct {
	Engine    *feed.Engine
	Directory *sources.Directory
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// New creates a publisher based on the configuration.
func New(cfg config.PublisherConfig, deps Deps) (Publisher, error) {
	switch cfg.Type {
	case "stdout":
		return NewStdoutPublisher(), nil
	case "web":
		return NewWebPublisher(cfg.Web.Addr, deps.Engine, deps.Directory, deps.Metrics, deps.Logger), nil
	case "email":
		e := cfg.Email
		return NewEmailPublisher(e.SMTPHost, e.SMTPPort, e.Username, e.Password, e.From, e.To), nil
	case "discord":
		return NewDiscordPublisher(cfg.Discord.WebhookURL), nil
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, deps.Logger), nil
	default:
		return nil, fmt.Errorf("publisher: unsupported type %q", cfg.Type)
	}
}
