package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher writes events to Kafka, keyed so that events of one order
// land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
	log    logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, prefix string, log logrus.FieldLogger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		prefix: prefix,
		log:    log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	body, err := newEnvelope(topic, payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: qualify(p.prefix, topic),
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", msg.Topic, err)
	}

	p.log.WithFields(logrus.Fields{"topic": msg.Topic, "key": key}).Debug("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
