package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	events map[uuid.UUID][]Event
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:   make(map[uuid.UUID]*Subscription),
		events: make(map[uuid.UUID][]Event),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) Insert(ctx context.Context, sub *Subscription, events ...Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.UserID]; ok {
		return ErrSubscriptionAlreadyExists
	}
	s.subs[sub.UserID] = sub.Clone()
	s.appendEvents(sub.UserID, events)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, userID uuid.UUID, fn UpdateFunc) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}

	next := current.Clone()
	events, err := fn(next)
	if err != nil {
		return nil, err
	}

	s.subs[userID] = next.Clone()
	s.appendEvents(userID, events)
	return next, nil
}

func (s *MemoryStore) Events(ctx context.Context, userID uuid.UUID) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.events[userID]
	out := make([]Event, len(src))
	for i, e := range src {
		out[i] = e.Clone()
	}
	return out, nil
}

// appendEvents must be called with the write lock held.
func (s *MemoryStore) appendEvents(userID uuid.UUID, events []Event) {
	for _, e := range events {
		s.events[userID] = append(s.events[userID], e.Clone())
	}
}
