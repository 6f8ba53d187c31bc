package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is one publication on the exchange.
type Message struct {
	RoutingKey    string
	Body          []byte
	MessageID     string
	CorrelationID string
	Type          string
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes messages to a durable topic exchange.
type Publisher struct {
	mu       sync.Mutex
	channel  channel
	exchange string
	timeout  time.Duration
	now      func() time.Time
}

// NewPublisher opens a channel on conn and declares the topic exchange.
func NewPublisher(conn *Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return newPublisher(ch, exchange), nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, timeout: 10 * time.Second, now: time.Now}
}

// Publish sends msg as a persistent JSON message.
// amqp channels are not safe for concurrent publishing, hence the mutex.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		msg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     msg.MessageID,
			CorrelationId: msg.CorrelationID,
			Type:          msg.Type,
			Body:          msg.Body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     p.now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
	}
	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
