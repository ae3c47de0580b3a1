package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store is a durable per-(user, feature, day) counter.
//
// Implementations must serialize increments per key: two concurrent IncrementBy(1)
// calls on a fresh key always end at 2, and IncrementCapped never overshoots its limit
// regardless of how many callers race on the same key.
type Store interface {
	// Get returns the current count, 0 when the key was never incremented.
	Get(ctx context.Context, key Key) (int64, error)

	// IncrementBy atomically creates the counter with amount or adds amount to it,
	// returning the post-increment value.
	IncrementBy(ctx context.Context, key Key, amount int64) (int64, error)

	// IncrementCapped atomically adds min(amount, limit-current) to the counter.
	// When the counter is already at or above limit nothing is written and applied is false.
	// total is the post-operation value in both cases.
	IncrementCapped(ctx context.Context, key Key, amount, limit int64) (total int64, applied bool, err error)

	// ListDay returns every counter of the user for the given day, keyed by feature.
	ListDay(ctx context.Context, userID uuid.UUID, day Day) (map[string]int64, error)
}

func validateIncrement(key Key, amount int64) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidAmount, amount)
	}
	return nil
}

func validateCapped(key Key, amount, limit int64) error {
	if err := validateIncrement(key, amount); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("%w: must not be negative, got %d", ErrInvalidLimit, limit)
	}
	return nil
}

// validateListDay applies the key rules that do not involve a feature.
func validateListDay(userID uuid.UUID, day Day) error {
	return NewKey(userID, "*", day).Validate()
}
