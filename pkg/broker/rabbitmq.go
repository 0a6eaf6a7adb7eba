package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RabbitMQPublisher publishes JSON messages to a single durable queue.
type RabbitMQPublisher struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
	cb        *gobreaker.CircuitBreaker
	mu        sync.Mutex
}

// NewRabbitMQPublisher dials the broker and declares the queue (idempotent).
func NewRabbitMQPublisher(amqpURL, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &RabbitMQPublisher{
		conn:      conn,
		ch:        ch,
		queueName: queueName,
		cb:        NewCircuitBreaker("RabbitMQ-Alerts", 30*time.Second, logger),
	}, nil
}

// Publish sends body as a persistent message. An open breaker fails fast.
func (p *RabbitMQPublisher) Publish(ctx context.Context, messageType string, body []byte) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return nil, p.ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         messageType,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", messageType, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
