package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featuregate/pkg/subscription"
	"github.com/dmitrymomot/featuregate/pkg/tier"
)

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T) (*subscription.Manager, *subscription.MemoryStore) {
	t.Helper()

	store := subscription.NewMemoryStore()
	m := subscription.NewManager(tier.Default(), store,
		subscription.WithManagerNow(func() time.Time { return fixedNow }),
	)
	return m, store
}

func ptr[T any](v T) *T { return &v }

func TestManager_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()

		sub, err := m.Create(ctx, subscription.CreateParams{UserID: userID})
		require.NoError(t, err)
		assert.Equal(t, tier.Free, sub.Tier)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.NotEqual(t, uuid.Nil, sub.ID)
		assert.Equal(t, fixedNow, sub.CreatedAt)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, subscription.EventCreated, events[0].Type)
		assert.Empty(t, events[0].PreviousTier)
		assert.Equal(t, tier.Free, events[0].NewTier)
		assert.Equal(t, sub.ID, events[0].SubscriptionID)
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()

		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Premium})
		require.NoError(t, err)

		_, err = m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Pro})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionAlreadyExists)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("unknown tier", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Create(ctx, subscription.CreateParams{UserID: uuid.New(), Tier: "platinum"})
		assert.ErrorIs(t, err, subscription.ErrUnknownTier)
	})

	t.Run("invalid status", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Create(ctx, subscription.CreateParams{UserID: uuid.New(), Status: "paused"})
		assert.ErrorIs(t, err, subscription.ErrInvalidStatus)
	})

	t.Run("nil user", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Create(ctx, subscription.CreateParams{})
		assert.ErrorIs(t, err, subscription.ErrInvalidUserID)
	})
}

func TestManager_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("tier change records event", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID})
		require.NoError(t, err)

		sub, err := m.Update(ctx, userID, subscription.UpdateParams{Tier: ptr(tier.Pro)})
		require.NoError(t, err)
		assert.Equal(t, tier.Pro, sub.Tier)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, subscription.EventChanged, events[1].Type)
		assert.Equal(t, tier.Free, events[1].PreviousTier)
		assert.Equal(t, tier.Pro, events[1].NewTier)
	})

	t.Run("same tier records nothing", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Premium})
		require.NoError(t, err)

		end := fixedNow.AddDate(0, 1, 0)
		sub, err := m.Update(ctx, userID, subscription.UpdateParams{
			Tier:             ptr(tier.Premium),
			CurrentPeriodEnd: &end,
		})
		require.NoError(t, err)
		require.NotNil(t, sub.CurrentPeriodEnd)
		assert.Equal(t, end, *sub.CurrentPeriodEnd)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{
			UserID:             userID,
			Tier:               tier.Premium,
			ProviderCustomerID: "cus_1",
		})
		require.NoError(t, err)

		sub, err := m.Update(ctx, userID, subscription.UpdateParams{Status: ptr(subscription.StatusPastDue)})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPastDue, sub.Status)
		assert.Equal(t, tier.Premium, sub.Tier)
		assert.Equal(t, "cus_1", sub.ProviderCustomerID)
	})

	t.Run("missing record", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Update(ctx, uuid.New(), subscription.UpdateParams{Tier: ptr(tier.Pro)})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})

	t.Run("unknown tier writes nothing", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID})
		require.NoError(t, err)

		_, err = m.Update(ctx, userID, subscription.UpdateParams{Tier: ptr(tier.Tier("platinum"))})
		assert.ErrorIs(t, err, subscription.ErrUnknownTier)

		sub, err := m.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, tier.Free, sub.Tier)
	})
}

func TestManager_Cancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("immediate", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Pro})
		require.NoError(t, err)

		sub, err := m.Cancel(ctx, userID, true)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCanceled, sub.Status)
		assert.Equal(t, tier.Free, sub.Tier)
		require.NotNil(t, sub.CanceledAt)
		assert.Equal(t, fixedNow, *sub.CanceledAt)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, subscription.EventCanceledImmediate, events[1].Type)
		assert.Equal(t, tier.Pro, events[1].PreviousTier, "previous tier is captured before the change")
		assert.Equal(t, tier.Free, events[1].NewTier)
	})

	t.Run("at period end", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Premium})
		require.NoError(t, err)

		sub, err := m.Cancel(ctx, userID, false)
		require.NoError(t, err)
		assert.True(t, sub.CancelAtPeriodEnd)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, tier.Premium, sub.Tier)
		assert.Nil(t, sub.CanceledAt)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, subscription.EventCanceledAtPeriodEnd, events[1].Type)
		assert.Equal(t, tier.Premium, events[1].PreviousTier)
		assert.Equal(t, tier.Premium, events[1].NewTier)
	})

	t.Run("missing record", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Cancel(ctx, uuid.New(), true)
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestManager_Upgrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates record for new user", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()

		sub, err := m.Upgrade(ctx, userID, tier.Premium)
		require.NoError(t, err)
		assert.Equal(t, tier.Premium, sub.Tier)

		events, err := m.Events(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, subscription.EventCreated, events[0].Type)
	})

	t.Run("upgrades existing record", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Premium})
		require.NoError(t, err)

		sub, err := m.Upgrade(ctx, userID, tier.Pro)
		require.NoError(t, err)
		assert.Equal(t, tier.Pro, sub.Tier)
	})

	t.Run("reactivates canceled record", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		userID := uuid.New()
		_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tier.Pro})
		require.NoError(t, err)
		_, err = m.Cancel(ctx, userID, true)
		require.NoError(t, err)

		sub, err := m.Upgrade(ctx, userID, tier.Premium)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, tier.Premium, sub.Tier)
		assert.Nil(t, sub.CanceledAt)
	})

	tests := []struct {
		name    string
		current tier.Tier
		target  tier.Tier
	}{
		{name: "same tier", current: tier.Premium, target: tier.Premium},
		{name: "downgrade", current: tier.Pro, target: tier.Premium},
		{name: "already highest", current: tier.Pro, target: tier.Pro},
		{name: "to lowest", current: tier.Free, target: tier.Free},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, _ := newManager(t)
			userID := uuid.New()
			_, err := m.Create(ctx, subscription.CreateParams{UserID: userID, Tier: tt.current})
			require.NoError(t, err)

			_, err = m.Upgrade(ctx, userID, tt.target)
			assert.ErrorIs(t, err, subscription.ErrInvalidUpgrade)
		})
	}

	t.Run("lowest tier for new user", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Upgrade(ctx, uuid.New(), tier.Free)
		assert.ErrorIs(t, err, subscription.ErrInvalidUpgrade)
	})

	t.Run("unknown tier", func(t *testing.T) {
		t.Parallel()

		m, _ := newManager(t)
		_, err := m.Upgrade(ctx, uuid.New(), "platinum")
		assert.ErrorIs(t, err, subscription.ErrUnknownTier)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subscription.NewMemoryStore()
	userID := uuid.New()
	end := fixedNow

	require.NoError(t, store.Insert(ctx, &subscription.Subscription{
		UserID:           userID,
		Tier:             tier.Premium,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: &end,
	}, subscription.Event{UserID: userID, Type: subscription.EventCreated, Metadata: map[string]any{"k": "v"}}))

	sub, err := store.Get(ctx, userID)
	require.NoError(t, err)
	sub.Tier = tier.Pro
	*sub.CurrentPeriodEnd = fixedNow.Add(time.Hour)

	again, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, tier.Premium, again.Tier)
	assert.Equal(t, fixedNow, *again.CurrentPeriodEnd)

	events, err := store.Events(ctx, userID)
	require.NoError(t, err)
	events[0].Metadata["k"] = "changed"

	events, err = store.Events(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "v", events[0].Metadata["k"])
}
