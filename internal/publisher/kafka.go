package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// articleEvent is the JSON value of each Kafka message.
type articleEvent struct {
	Generation uint64          `json:"generation"`
	FetchedAt  time.Time       `json:"fetched_at"`
	Article    article.Article `json:"article"`
}

// KafkaPublisher emits one message per corpus article, keyed by article id.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		log:    logger.OrNop(log).Named("kafka").With(zap.String("topic", topic)),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, edition *Edition) error {
	snap := edition.Snapshot
	if snap == nil || len(snap.Articles) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(snap.Articles))
	for _, a := range snap.Articles {
		value, err := json.Marshal(articleEvent{Generation: snap.Generation, FetchedAt: snap.FetchedAt, Article: a})
		if err != nil {
			return fmt.Errorf("kafka: marshal article %s: %w", a.ID, err)
		}
		messages = append(messages, kafka.Message{Key: []byte(a.ID), Value: value})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", p.topic, err)
	}
	p.log.Debug("batch published", zap.Int("count", len(messages)), zap.Uint64("generation", snap.Generation))
	return nil
}

// Close flushes pending writes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
