// Package memory provides in-process repositories for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventhub/internal/domain"
)

// RSVPStore keeps RSVPs in memory and serializes work per event id.
// Readers outside WithEventLock may observe uncommitted changes.
type RSVPStore struct {
	mu     sync.Mutex
	rows   map[int64]domain.RSVP
	nextID int64
	locks  map[string]*sync.Mutex
}

// NewRSVPStore returns an empty store.
func NewRSVPStore() *RSVPStore {
	return &RSVPStore{
		rows:  make(map[int64]domain.RSVP),
		locks: make(map[string]*sync.Mutex),
	}
}

var _ domain.RSVPRepository = (*RSVPStore)(nil)

func (s *RSVPStore) eventLock(eventID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	return l
}

// WithEventLock runs fn holding the event's mutex. Changes are undone when fn fails.
func (s *RSVPStore) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx domain.RSVPTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.eventLock(eventID)
	l.Lock()
	defer l.Unlock()

	tx := &rsvpTx{store: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *RSVPStore) ListByEvent(_ context.Context, eventID string) ([]*domain.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(func(r domain.RSVP) bool { return r.EventID == eventID }, byCreation), nil
}

func (s *RSVPStore) ListByUser(_ context.Context, userID string) ([]*domain.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(func(r domain.RSVP) bool { return r.UserID == userID }, newestFirst), nil
}

func (s *RSVPStore) CountByStatus(_ context.Context, eventID string) (confirmed, waitlisted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.EventID != eventID {
			continue
		}
		switch r.Status {
		case domain.RSVPStatusConfirmed:
			confirmed++
		case domain.RSVPStatusWaitlist:
			waitlisted++
		}
	}
	return confirmed, waitlisted, nil
}

func (s *RSVPStore) selectLocked(keep func(domain.RSVP) bool, less func(a, b *domain.RSVP) bool) []*domain.RSVP {
	out := []*domain.RSVP{}
	for _, r := range s.rows {
		if keep(r) {
			cp := r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCreation(a, b *domain.RSVP) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func newestFirst(a, b *domain.RSVP) bool {
	return byCreation(b, a)
}

// rsvpTx records undo steps so a failed unit of work leaves no trace.
type rsvpTx struct {
	store *RSVPStore
	undo  []func()
}

var _ domain.RSVPTx = (*rsvpTx)(nil)

func (t *rsvpTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *rsvpTx) FindByEventAndUser(_ context.Context, eventID, userID string) (*domain.RSVP, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, r := range t.store.rows {
		if r.EventID == eventID && r.UserID == userID {
			cp := r
			return &cp, nil
		}
	}
	return nil, domain.ErrRSVPNotFound
}

func (t *rsvpTx) Insert(_ context.Context, rsvp *domain.RSVP) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.EventID == rsvp.EventID && r.UserID == rsvp.UserID {
			return domain.ErrAlreadyRegistered
		}
	}
	s.nextID++
	rsvp.ID = s.nextID
	if rsvp.CreatedAt.IsZero() {
		rsvp.CreatedAt = time.Now()
	}
	s.rows[rsvp.ID] = *rsvp
	id := rsvp.ID
	t.undo = append(t.undo, func() { delete(s.rows, id) })
	return nil
}

func (t *rsvpTx) Delete(_ context.Context, id int64) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rows[id]
	if !ok {
		return domain.ErrRSVPNotFound
	}
	delete(s.rows, id)
	t.undo = append(t.undo, func() { s.rows[id] = old })
	return nil
}

func (t *rsvpTx) UpdateStatus(_ context.Context, id int64, status domain.RSVPStatus) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.ErrRSVPNotFound
	}
	prev := r.Status
	r.Status = status
	s.rows[id] = r
	t.undo = append(t.undo, func() {
		if cur, ok := s.rows[id]; ok {
			cur.Status = prev
			s.rows[id] = cur
		}
	})
	return nil
}

func (t *rsvpTx) FindWaitlistOrderedByCreation(_ context.Context, eventID string, limit int) ([]*domain.RSVP, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.selectLocked(func(r domain.RSVP) bool {
		return r.EventID == eventID && r.Status == domain.RSVPStatusWaitlist
	}, byCreation)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *rsvpTx) CountConfirmed(_ context.Context, eventID string) (int, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.EventID == eventID && r.Status == domain.RSVPStatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (t *rsvpTx) ListByEvent(_ context.Context, eventID string) ([]*domain.RSVP, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(func(r domain.RSVP) bool { return r.EventID == eventID }, byCreation), nil
}

func (t *rsvpTx) DeleteByEvent(_ context.Context, eventID string) (int64, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.rows {
		if r.EventID != eventID {
			continue
		}
		delete(s.rows, id)
		old := r
		t.undo = append(t.undo, func() { s.rows[old.ID] = old })
		n++
	}
	return n, nil
}
