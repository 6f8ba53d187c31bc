package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/adapters/rabbitmq"
	"eventhub/internal/domain"
	"eventhub/internal/platform/requestctx"
)

// Publisher is the part of rabbitmq.Publisher the AMQP sink needs.
type Publisher interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// notificationMessage is the JSON body published for each request.
type notificationMessage struct {
	ID             string                  `json:"id"`
	CorrelationID  string                  `json:"correlation_id,omitempty"`
	RecipientID    string                  `json:"recipient_id"`
	Message        string                  `json:"message"`
	Type           domain.NotificationType `json:"type"`
	RelatedEventID string                  `json:"related_event_id,omitempty"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

// AMQPSink publishes notification requests to a topic exchange so a push
// gateway can forward them to connected clients.
type AMQPSink struct {
	pub Publisher
	now func() time.Time
}

// NewAMQPSink returns a sink publishing through pub.
func NewAMQPSink(pub Publisher) *AMQPSink {
	return &AMQPSink{pub: pub, now: time.Now}
}

func (s *AMQPSink) Name() string { return "amqp" }

// RoutingKey is "notification.<type>" in lower case, e.g. notification.waitlist_promoted.
func RoutingKey(t domain.NotificationType) string {
	return "notification." + strings.ToLower(string(t))
}

func (s *AMQPSink) Deliver(ctx context.Context, req domain.NotificationRequest) error {
	msg := notificationMessage{
		ID:             uuid.NewString(),
		CorrelationID:  requestctx.CorrelationID(ctx),
		RecipientID:    req.RecipientID,
		Message:        req.Message,
		Type:           req.Type,
		RelatedEventID: req.RelatedEventID,
		OccurredAt:     s.now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = s.pub.Publish(ctx, rabbitmq.Message{
		RoutingKey:    RoutingKey(req.Type),
		Body:          body,
		MessageID:     msg.ID,
		CorrelationID: msg.CorrelationID,
		Type:          string(req.Type),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// LogSink writes each request to the logger. Used in development and as the
// default when no transport is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, req domain.NotificationRequest) error {
	s.logger.InfoContext(ctx, "notification",
		"type", req.Type,
		"recipient_id", req.RecipientID,
		"related_event_id", req.RelatedEventID,
		"message", req.Message,
	)
	return nil
}
