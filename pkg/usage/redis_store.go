package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cappedIncrementScript adds min(amount, limit-current) to a hash field.
// KEYS[1] = user/day hash, ARGV[1] = feature field, ARGV[2] = amount,
// ARGV[3] = limit, ARGV[4] = TTL in seconds (0 keeps the key forever).
// Returns {total, applied} where applied is 1 when anything was added.
var cappedIncrementScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local limit = tonumber(ARGV[3])
if current >= limit then
    return {current, 0}
end
local delta = math.min(tonumber(ARGV[2]), limit - current)
local total = redis.call('HINCRBY', KEYS[1], ARGV[1], delta)
local ttl = tonumber(ARGV[4])
if ttl > 0 then
    redis.call('EXPIRE', KEYS[1], ttl)
end
return {total, 1}
`)

const defaultRedisPrefix = "featuregate:usage"

// RedisStore implements Store on Redis. Counters of one user and day live in a single
// hash, one field per feature, so a day's summary is one HGETALL.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the key namespace. Empty prefixes are ignored.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithKeyRetention expires a user/day hash d after its last write.
// Zero, the default, keeps superseded days forever.
func WithKeyRetention(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewRedisStore creates a Redis backed store. Panics if client is nil.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("usage: redis client is required")
	}
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) hashKey(userID uuid.UUID, day Day) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, day, userID)
}

func (s *RedisStore) ttlSeconds() int64 {
	return int64(s.retention / time.Second)
}

func (s *RedisStore) Get(ctx context.Context, key Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	n, err := s.client.HGet(ctx, s.hashKey(key.UserID, key.Day), key.Feature).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *RedisStore) IncrementBy(ctx context.Context, key Key, amount int64) (int64, error) {
	if err := validateIncrement(key, amount); err != nil {
		return 0, err
	}

	hk := s.hashKey(key.UserID, key.Day)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, hk, key.Feature, amount)
		if ttl := s.retention; ttl > 0 {
			pipe.Expire(ctx, hk, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return incr.Val(), nil
}

func (s *RedisStore) IncrementCapped(ctx context.Context, key Key, amount, limit int64) (int64, bool, error) {
	if err := validateCapped(key, amount, limit); err != nil {
		return 0, false, err
	}

	res, err := cappedIncrementScript.Run(ctx, s.client,
		[]string{s.hashKey(key.UserID, key.Day)},
		key.Feature, amount, limit, s.ttlSeconds(),
	).Int64Slice()
	if err != nil {
		return 0, false, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, false, errors.Join(ErrStoreUnavailable, fmt.Errorf("unexpected script reply of %d values", len(res)))
	}
	return res[0], res[1] == 1, nil
}

func (s *RedisStore) ListDay(ctx context.Context, userID uuid.UUID, day Day) (map[string]int64, error) {
	if err := validateListDay(userID, day); err != nil {
		return nil, err
	}

	raw, err := s.client.HGetAll(ctx, s.hashKey(userID, day)).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	out := make(map[string]int64, len(raw))
	for feature, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Join(ErrStoreUnavailable, fmt.Errorf("counter %s is not an integer: %w", feature, err))
		}
		out[feature] = n
	}
	return out, nil
}
