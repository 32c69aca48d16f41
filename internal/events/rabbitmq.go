package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitMQPublisher publishes each topic to a durable queue of the same name
// through the default exchange. The connection is opened on first use and
// reopened after the broker drops it.
type RabbitMQPublisher struct {
	url    string
	prefix string
	log    logrus.FieldLogger

	mu       sync.Mutex
	conn     *amqp.Connection
	declared map[string]bool
}

func NewRabbitMQPublisher(url, prefix string, log logrus.FieldLogger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		url:      url,
		prefix:   prefix,
		log:      log,
		declared: make(map[string]bool),
	}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	body, err := newEnvelope(topic, payload)
	if err != nil {
		return err
	}
	queue := qualify(p.prefix, topic)

	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if !p.declared[queue] {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		CorrelationId: key,
		Body:          body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", queue, err)
	}

	p.log.WithFields(logrus.Fields{"queue": queue, "key": key}).Debug("event published")
	return nil
}

func (p *RabbitMQPublisher) connection() (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p.conn = conn
	p.declared = make(map[string]bool)
	return conn, nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
