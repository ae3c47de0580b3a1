package quota_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/featuregate/pkg/tier"
	"github.com/dmitrymomot/featuregate/pkg/usage"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key usage.Key) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) IncrementBy(ctx context.Context, key usage.Key, amount int64) (int64, error) {
	args := m.Called(ctx, key, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) IncrementCapped(ctx context.Context, key usage.Key, amount, limit int64) (int64, bool, error) {
	args := m.Called(ctx, key, amount, limit)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *mockStore) ListDay(ctx context.Context, userID uuid.UUID, day usage.Day) (map[string]int64, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// tierResolver resolves users from a map; unknown users are on the free tier.
type tierResolver struct {
	mu    sync.RWMutex
	tiers map[uuid.UUID]tier.Tier
	err   error
}

func newTierResolver() *tierResolver {
	return &tierResolver{tiers: make(map[uuid.UUID]tier.Tier)}
}

func (r *tierResolver) set(id uuid.UUID, t tier.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[id] = t
}

func (r *tierResolver) Resolve(_ context.Context, id uuid.UUID) (tier.Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return "", r.err
	}
	if t, ok := r.tiers[id]; ok {
		return t, nil
	}
	return tier.Free, nil
}
