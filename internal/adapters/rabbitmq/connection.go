package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection wraps an AMQP connection.
type Connection struct {
	URL  string
	Conn *amqp.Connection
}

// Connect dials RabbitMQ, retrying up to attempts times.
func Connect(ctx context.Context, logger *slog.Logger, url string, attempts int, backoff time.Duration) (*Connection, error) {
	if attempts <= 0 {
		attempts = 30
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var err error
	for i := 0; i < attempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("connected to rabbitmq")
			return &Connection{URL: url, Conn: conn}, nil
		}
		logger.Warn("rabbitmq not ready, retrying", "attempt", i+1, "backoff", backoff, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// Channel opens a new AMQP channel.
func (c *Connection) Channel() (*amqp.Channel, error) {
	return c.Conn.Channel()
}

// Close closes the connection.
func (c *Connection) Close() error {
	if c.Conn != nil {
		return c.Conn.Close()
	}
	return nil
}
