// Package events delivers domain events to a log, a Kafka topic or a webhook.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"timbercalc/core/types"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

// Backend names an event sink
type Backend string

const (
	BackendNone    Backend = "none"
	BackendLog     Backend = "log"
	BackendKafka   Backend = "kafka"
	BackendWebhook Backend = "webhook"
)

var (
	_ types.Publisher = (*LogPublisher)(nil)
	_ types.Publisher = (*KafkaPublisher)(nil)
)

// Open creates the publisher selected by cfg.Backend
func Open(cfg config.EventsConfig, log *zap.Logger) (types.Publisher, error) {
	switch Backend(cfg.Backend) {
	case BackendNone:
		return types.NopPublisher{}, nil
	case BackendLog, "":
		return NewLogPublisher(log), nil
	case BackendKafka:
		if len(cfg.Brokers) == 0 {
			return nil, errors.Config("kafka events require at least one broker", nil)
		}
		if cfg.Topic == "" {
			return nil, errors.Config("kafka events require a topic", nil)
		}
		return NewKafkaPublisher(cfg, log), nil
	case BackendWebhook:
		p, err := NewWebhookPublisher(cfg.Webhook, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.Config("unknown events backend: "+cfg.Backend, nil)
	}
}

// LogPublisher writes events to the structured log
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a log publisher
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

// Publish implements types.Publisher
func (p *LogPublisher) Publish(ctx context.Context, event types.Event) error {
	p.log.Info("event",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.Type.String()),
		zap.String("subject", event.Subject),
		zap.Any("payload", event.Payload),
	)
	return nil
}

// Close implements types.Publisher
func (p *LogPublisher) Close() error {
	return nil
}

// messageWriter is the part of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes events as JSON to a Kafka topic
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

// NewKafkaPublisher creates a Kafka-based event publisher
func NewKafkaPublisher(cfg config.EventsConfig, log *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(writer, cfg.Topic, log)
}

func newKafkaPublisher(w messageWriter, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// Publish implements types.Publisher
func (p *KafkaPublisher) Publish(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Internal("encode event", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.Type.String()),
			zap.String("topic", p.topic),
			zap.Error(err))
		return errors.Wrap(errors.TypeInternal, "publish event", err)
	}

	p.log.Debug("event published",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.Type.String()))
	return nil
}

// Close closes the Kafka writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
