package memory

import (
	"context"
	"sync"

	"eventhub/internal/domain"
)

// EventStore is an in-memory domain.EventRepository.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]domain.Event
}

// NewEventStore returns a store seeded with events.
func NewEventStore(events ...*domain.Event) *EventStore {
	s := &EventStore{events: make(map[string]domain.Event)}
	for _, e := range events {
		s.Put(e)
	}
	return s
}

// Put inserts or replaces an event.
func (s *EventStore) Put(e *domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = *e
}

func (s *EventStore) GetByID(_ context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return &e, nil
}

// UserStore is an in-memory domain.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserStore returns a store seeded with users.
func NewUserStore(users ...*domain.User) *UserStore {
	s := &UserStore{users: make(map[string]domain.User)}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// Put inserts or replaces a user.
func (s *UserStore) Put(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
