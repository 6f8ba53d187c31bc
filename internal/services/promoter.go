package services

import (
	"context"
	"fmt"

	"eventhub/internal/domain"
)

// WaitlistPromoter moves the oldest waitlisted RSVP into a freed confirmed slot.
type WaitlistPromoter struct {
	ledger CapacityLedger
}

// Promote confirms at most one waitlisted RSVP for the event, oldest first
// (created_at, then id). It returns nil when the waitlist is empty or the event
// is still at capacity. The caller must hold the event lock through tx.
func (p WaitlistPromoter) Promote(ctx context.Context, tx domain.RSVPTx, event *domain.Event) (*domain.RSVP, error) {
	full, err := p.ledger.IsFull(ctx, tx, event.ID, event.Capacity)
	if err != nil {
		return nil, err
	}
	if full {
		return nil, nil
	}

	next, err := tx.FindWaitlistOrderedByCreation(ctx, event.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("find waitlist: %w", err)
	}
	if len(next) == 0 {
		return nil, nil
	}

	promoted := next[0]
	if err := tx.UpdateStatus(ctx, promoted.ID, domain.RSVPStatusConfirmed); err != nil {
		return nil, fmt.Errorf("promote rsvp %d: %w", promoted.ID, err)
	}
	promoted.Status = domain.RSVPStatusConfirmed
	return promoted, nil
}
