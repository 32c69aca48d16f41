// Package events delivers domain events to the configured broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher is implemented by every broker backend.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

func newEnvelope(topic string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       topic,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}

// qualify prefixes a topic with the deployment namespace.
func qualify(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

// Config selects and configures the broker backend.
type Config struct {
	Broker       string
	KafkaBrokers []string
	RabbitMQURL  string
	TopicPrefix  string
}

// NewPublisher builds the publisher for cfg.Broker: "kafka", "rabbitmq" or "none".
func NewPublisher(cfg Config, log logrus.FieldLogger) (Publisher, error) {
	switch cfg.Broker {
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicPrefix, log), nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.TopicPrefix, log), nil
	case "", "none":
		return NewLogPublisher(log), nil
	}
	return nil, fmt.Errorf("unsupported event broker %q", cfg.Broker)
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct {
	log logrus.FieldLogger
}

func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, _ any) error {
	p.log.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug("event dropped, no broker configured")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
