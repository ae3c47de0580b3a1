package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// State is the subscription state of a user as seen by the resolver.
// It is either DefaultState (no record) or RecordedState.
type State interface {
	state()
}

// DefaultState describes a user without a subscription record.
// Such users are on the lowest tier with an active status.
type DefaultState struct {
	Tier tier.Tier
}

// RecordedState wraps a stored subscription.
type RecordedState struct {
	Subscription *Subscription
}

func (DefaultState) state()  {}
func (RecordedState) state() {}

// Resolver maps users to their effective tier.
type Resolver struct {
	catalog *tier.Catalog
	reader  Reader
}

// NewResolver creates a resolver. Panics if catalog or reader is nil.
func NewResolver(catalog *tier.Catalog, reader Reader) *Resolver {
	if catalog == nil {
		panic("subscription: catalog is required")
	}
	if reader == nil {
		panic("subscription: reader is required")
	}
	return &Resolver{catalog: catalog, reader: reader}
}

// State loads the user's subscription state. A missing record is not an error.
func (r *Resolver) State(ctx context.Context, userID uuid.UUID) (State, error) {
	sub, err := r.reader.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		return DefaultState{Tier: r.catalog.Lowest()}, nil
	case err != nil:
		return nil, err
	case sub == nil:
		return DefaultState{Tier: r.catalog.Lowest()}, nil
	}
	return RecordedState{Subscription: sub}, nil
}

// Resolve returns the tier the user is entitled to right now.
// Only an active record grants its stored tier; every other status falls back to the lowest.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (tier.Tier, error) {
	st, err := r.State(ctx, userID)
	if err != nil {
		return "", err
	}
	return r.EffectiveTier(st), nil
}

// EffectiveTier evaluates a previously loaded state.
func (r *Resolver) EffectiveTier(st State) tier.Tier {
	switch s := st.(type) {
	case RecordedState:
		if s.Subscription.IsActive() {
			return s.Subscription.Tier
		}
	case DefaultState:
		if s.Tier != "" {
			return s.Tier
		}
	}
	return r.catalog.Lowest()
}
