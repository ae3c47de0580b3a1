package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Reader loads a user's subscription. Returns ErrSubscriptionNotFound if none exists.
type Reader interface {
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)
}

// UpdateFunc mutates a subscription in place and returns the events to append with it.
// Returning an error aborts the update and nothing is written.
type UpdateFunc func(sub *Subscription) ([]Event, error)

// Store persists subscriptions together with their event history.
type Store interface {
	Reader

	// Insert creates the record and its first events atomically.
	// Returns ErrSubscriptionAlreadyExists if the user already has a record.
	Insert(ctx context.Context, sub *Subscription, events ...Event) error

	// Update runs fn against the current record while holding it exclusively, then
	// writes the record and the returned events atomically.
	// Returns ErrSubscriptionNotFound if the user has no record.
	Update(ctx context.Context, userID uuid.UUID, fn UpdateFunc) (*Subscription, error)

	// Events returns the user's history, oldest first.
	Events(ctx context.Context, userID uuid.UUID) ([]Event, error)
}
