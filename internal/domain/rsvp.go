package domain

import (
	"context"
	"time"
)

// RSVPStatus is the admission state of an RSVP.
type RSVPStatus string

const (
	RSVPStatusConfirmed RSVPStatus = "CONFIRMED"
	RSVPStatusWaitlist  RSVPStatus = "WAITLIST"
)

// RSVP is a user's registration for an event.
// The ID is assigned by the store in insertion order and breaks createdAt ties.
// swagger:model RSVP
type RSVP struct {
	ID        int64      `json:"id"`
	EventID   string     `json:"event_id"`
	UserID    string     `json:"user_id"`
	Status    RSVPStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewRSVP returns an RSVP for the pair. ID is set by the store on insert.
func NewRSVP(eventID, userID string, status RSVPStatus, createdAt time.Time) *RSVP {
	return &RSVP{
		EventID:   eventID,
		UserID:    userID,
		Status:    status,
		CreatedAt: createdAt,
	}
}

// RSVPTx is the set of RSVP operations available while the event lock is held.
// Every method runs in the caller's transaction.
type RSVPTx interface {
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*RSVP, error)
	// Insert assigns rsvp.ID. Stores backed by a shared clock also overwrite
	// rsvp.CreatedAt with their own insert time.
	Insert(ctx context.Context, rsvp *RSVP) error
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status RSVPStatus) error
	// FindWaitlistOrderedByCreation returns WAITLIST rows ordered by created_at, id.
	FindWaitlistOrderedByCreation(ctx context.Context, eventID string, limit int) ([]*RSVP, error)
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	ListByEvent(ctx context.Context, eventID string) ([]*RSVP, error)
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
}

// RSVPRepository owns RSVP persistence.
type RSVPRepository interface {
	// WithEventLock runs fn while holding an exclusive per-event lock.
	// Work done through tx commits if fn returns nil and is rolled back otherwise.
	// Lost serialization races surface as ErrConflict.
	WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx RSVPTx) error) error
	ListByEvent(ctx context.Context, eventID string) ([]*RSVP, error)
	ListByUser(ctx context.Context, userID string) ([]*RSVP, error)
	CountByStatus(ctx context.Context, eventID string) (confirmed, waitlisted int, err error)
}

// RSVPService is the admission and promotion core exposed to the delivery layer.
type RSVPService interface {
	Register(ctx context.Context, eventID, userID string) (*RSVP, error)
	Cancel(ctx context.Context, eventID, userID string) error
	ListEventRSVPs(ctx context.Context, eventID string) ([]*RSVP, error)
	ListUserRSVPs(ctx context.Context, userID string) ([]*RSVP, error)
	Availability(ctx context.Context, eventID string) (*Availability, error)
}

// EventRippleService fans event-level changes out to registrants.
type EventRippleService interface {
	NotifyEventUpdated(ctx context.Context, eventID string) (int, error)
	ReleaseEvent(ctx context.Context, eventID string) (int, error)
}
