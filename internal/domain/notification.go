package domain

import "context"

// NotificationType tags a notification request.
type NotificationType string

const (
	NotificationRSVPConfirmed    NotificationType = "RSVP_CONFIRMED"
	NotificationRSVPWaitlist     NotificationType = "RSVP_WAITLIST"
	NotificationEventUpdate      NotificationType = "EVENT_UPDATE"
	NotificationWaitlistPromoted NotificationType = "WAITLIST_PROMOTED"
	NotificationEventCancelled   NotificationType = "EVENT_CANCELLED"
	NotificationEventReminder    NotificationType = "EVENT_REMINDER"
)

// NotificationRequest is an outbound message for a single recipient.
type NotificationRequest struct {
	RecipientID    string           `json:"recipient_id"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	RelatedEventID string           `json:"related_event_id,omitempty"`
}

// NotificationEmitter accepts notification requests for best-effort delivery.
// Enqueue must not block on delivery and never reports delivery failures.
type NotificationEmitter interface {
	Enqueue(ctx context.Context, req NotificationRequest)
}

// NotificationSink delivers one notification through a concrete channel.
type NotificationSink interface {
	Name() string
	Deliver(ctx context.Context, req NotificationRequest) error
}
