package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory.
// State is lost on restart, so it suits tests and single-instance development setups.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[Key]int64

	retention       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithRetention drops counters whose day ended more than d ago, checked every interval.
// Both values must be positive; otherwise counters are kept for the store's lifetime.
func WithRetention(d, interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.retention = d
		ms.cleanupInterval = interval
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		counters:    make(map[Key]int64),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.retention > 0 && ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) Get(ctx context.Context, key Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.counters[key], nil
}

func (ms *MemoryStore) IncrementBy(ctx context.Context, key Key, amount int64) (int64, error) {
	if err := validateIncrement(key, amount); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.counters[key] += amount
	return ms.counters[key], nil
}

func (ms *MemoryStore) IncrementCapped(ctx context.Context, key Key, amount, limit int64) (int64, bool, error) {
	if err := validateCapped(key, amount, limit); err != nil {
		return 0, false, err
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	current := ms.counters[key]
	if current >= limit {
		return current, false, nil
	}

	ms.counters[key] = current + min(amount, limit-current)
	return ms.counters[key], true, nil
}

func (ms *MemoryStore) ListDay(ctx context.Context, userID uuid.UUID, day Day) (map[string]int64, error) {
	if err := validateListDay(userID, day); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make(map[string]int64)
	for k, v := range ms.counters {
		if k.UserID == userID && k.Day == day {
			out[k.Feature] = v
		}
	}
	return out, nil
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stopCleanup:
			return
		}
	}
}

// removeExpired deletes counters of days that ended before now-retention.
// Day strings are compared in UTC, which can keep a counter up to one extra day.
func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cutoff := Day(ms.now().Add(-ms.retention).UTC().AddDate(0, 0, -1).Format(DayLayout))
	for k := range ms.counters {
		if k.Day < cutoff {
			delete(ms.counters, k)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stopCleanup) })
}
