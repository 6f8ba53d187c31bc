package services

import (
	"context"
	"fmt"

	"eventhub/internal/domain"
)

// confirmedCounter is the slice of the store the ledger reads from.
type confirmedCounter interface {
	CountConfirmed(ctx context.Context, eventID string) (int, error)
}

// CapacityLedger answers "is this event full" from the authoritative row count.
// It must be called with the transaction that performs the dependent write.
type CapacityLedger struct{}

// ConfirmedCount returns the number of CONFIRMED rows for the event.
func (CapacityLedger) ConfirmedCount(ctx context.Context, q confirmedCounter, eventID string) (int, error) {
	n, err := q.CountConfirmed(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// IsFull reports whether confirmedCount >= capacity.
func (l CapacityLedger) IsFull(ctx context.Context, q confirmedCounter, eventID string, capacity int) (bool, error) {
	n, err := l.ConfirmedCount(ctx, q, eventID)
	if err != nil {
		return false, err
	}
	return n >= capacity, nil
}

type statusCounter interface {
	CountByStatus(ctx context.Context, eventID string) (confirmed, waitlisted int, err error)
}

// Availability builds a point-in-time summary for the event. It is advisory
// only; admission decisions go through IsFull under the event lock.
func (CapacityLedger) Availability(ctx context.Context, q statusCounter, event *domain.Event) (*domain.Availability, error) {
	confirmed, waitlisted, err := q.CountByStatus(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("count rsvps by status: %w", err)
	}
	return &domain.Availability{
		EventID:        event.ID,
		Capacity:       event.Capacity,
		ConfirmedCount: confirmed,
		WaitlistCount:  waitlisted,
		IsFull:         confirmed >= event.Capacity,
	}, nil
}
