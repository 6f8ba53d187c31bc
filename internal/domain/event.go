package domain

import (
	"context"
	"time"
)

// Event is the read-only view of an event owned by the event-management service.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Capacity    int       `json:"capacity"`
	EventDate   time.Time `json:"event_date"`
	Published   bool      `json:"published"`
	OrganizerID string    `json:"organizer_id"`
}

// Elapsed reports whether the event date is strictly before now.
func (e *Event) Elapsed(now time.Time) bool {
	return e.EventDate.Before(now)
}

// EventRepository looks up events. Implementations return ErrEventNotFound for unknown ids.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
}

// Availability summarizes how many confirmed seats an event has left.
// swagger:model Availability
type Availability struct {
	EventID        string `json:"event_id"`
	Capacity       int    `json:"capacity"`
	ConfirmedCount int    `json:"confirmed_count"`
	WaitlistCount  int    `json:"waitlist_count"`
	IsFull         bool   `json:"is_full"`
}
