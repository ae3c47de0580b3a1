package usage_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featuregate/pkg/usage"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("get absent key", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		n, err := store.Get(ctx, usage.NewKey(uuid.New(), "ask_questions", "2025-01-15"))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("increment creates then adds", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		key := usage.NewKey(uuid.New(), "ask_questions", "2025-01-15")

		n, err := store.IncrementBy(ctx, key, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = store.IncrementBy(ctx, key, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		n, err = store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("invalid amount writes nothing", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		key := usage.NewKey(uuid.New(), "ask_questions", "2025-01-15")

		_, err := store.IncrementBy(ctx, key, 0)
		assert.ErrorIs(t, err, usage.ErrInvalidAmount)
		_, _, err = store.IncrementCapped(ctx, key, -1, 10)
		assert.ErrorIs(t, err, usage.ErrInvalidAmount)

		n, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("capped increment stops at limit", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		key := usage.NewKey(uuid.New(), "ask_questions", "2025-01-15")

		total, applied, err := store.IncrementCapped(ctx, key, 8, 10)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(8), total)

		total, applied, err = store.IncrementCapped(ctx, key, 5, 10)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(10), total)

		total, applied, err = store.IncrementCapped(ctx, key, 1, 10)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, int64(10), total)
	})

	t.Run("zero limit never applies", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		key := usage.NewKey(uuid.New(), "insight_expansion", "2025-01-15")

		total, applied, err := store.IncrementCapped(ctx, key, 1, 0)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Zero(t, total)
	})

	t.Run("negative limit", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		_, _, err := store.IncrementCapped(ctx, usage.NewKey(uuid.New(), "f", "2025-01-15"), 1, -1)
		assert.ErrorIs(t, err, usage.ErrInvalidLimit)
	})

	t.Run("list day", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		userID := uuid.New()

		_, err := store.IncrementBy(ctx, usage.NewKey(userID, "ask_questions", "2025-01-15"), 4)
		require.NoError(t, err)
		_, err = store.IncrementBy(ctx, usage.NewKey(userID, "insight_expansion", "2025-01-15"), 1)
		require.NoError(t, err)
		_, err = store.IncrementBy(ctx, usage.NewKey(userID, "ask_questions", "2025-01-14"), 9)
		require.NoError(t, err)
		_, err = store.IncrementBy(ctx, usage.NewKey(uuid.New(), "ask_questions", "2025-01-15"), 7)
		require.NoError(t, err)

		got, err := store.ListDay(ctx, userID, "2025-01-15")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"ask_questions": 4, "insight_expansion": 1}, got)
	})

	t.Run("list day invalid input", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()

		_, err := store.ListDay(ctx, uuid.Nil, "2025-01-15")
		assert.ErrorIs(t, err, usage.ErrInvalidKey)

		_, err = store.ListDay(ctx, uuid.New(), "15-01-2025")
		assert.ErrorIs(t, err, usage.ErrInvalidKey)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := store.IncrementCapped(cctx, usage.NewKey(uuid.New(), "f", "2025-01-15"), 1, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("retention drops stale days", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore(usage.WithRetention(time.Hour, 10*time.Millisecond))
		defer store.Close()

		stale := usage.NewKey(uuid.New(), "ask_questions", "2020-01-01")
		fresh := usage.NewKey(stale.UserID, "ask_questions", usage.NewClock(time.UTC).Today())
		_, err := store.IncrementBy(ctx, stale, 1)
		require.NoError(t, err)
		_, err = store.IncrementBy(ctx, fresh, 1)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			n, _ := store.Get(ctx, stale)
			return n == 0
		}, time.Second, 10*time.Millisecond)

		n, err := store.Get(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore()
		store.Close()
		store.Close()
	})
}

func TestMemoryStore_ConcurrentCappedIncrement(t *testing.T) {
	t.Parallel()

	const (
		workers = 64
		limit   = 10
	)

	store := usage.NewMemoryStore()
	key := usage.NewKey(uuid.New(), "ask_questions", "2025-01-15")

	var (
		wg      sync.WaitGroup
		applied atomic.Int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.IncrementCapped(context.Background(), key, 1, limit)
			if err == nil && ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), applied.Load())
	n, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), n)
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	t.Parallel()

	store := usage.NewMemoryStore()
	key := usage.NewKey(uuid.New(), "ask_questions", "2025-01-15")

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.IncrementBy(context.Background(), key, 1)
		}()
	}
	wg.Wait()

	n, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
}
