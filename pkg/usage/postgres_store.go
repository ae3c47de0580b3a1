package usage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Querier is the subset of *sql.DB and *sql.Tx used by PostgresStore.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	getUsageQuery = `SELECT usage_count FROM feature_usage
WHERE user_id = $1 AND feature_name = $2 AND usage_date = $3`

	incrementUsageQuery = `INSERT INTO feature_usage (user_id, feature_name, usage_date, usage_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, feature_name, usage_date)
DO UPDATE SET usage_count = feature_usage.usage_count + EXCLUDED.usage_count, updated_at = NOW()
RETURNING usage_count`

	// The WHERE guard leaves a counter at its cap untouched, and RETURNING yields no row.
	incrementCappedUsageQuery = `INSERT INTO feature_usage (user_id, feature_name, usage_date, usage_count)
VALUES ($1, $2, $3, LEAST($4::bigint, $5::bigint))
ON CONFLICT (user_id, feature_name, usage_date)
DO UPDATE SET usage_count = LEAST(feature_usage.usage_count + $4::bigint, $5::bigint), updated_at = NOW()
WHERE feature_usage.usage_count < $5::bigint
RETURNING usage_count`

	listDayUsageQuery = `SELECT feature_name, usage_count FROM feature_usage
WHERE user_id = $1 AND usage_date = $2`
)

// PostgresStore implements Store on the feature_usage table.
// The unique (user_id, feature_name, usage_date) constraint makes every increment a
// single atomic upsert.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore creates a store over db. Panics if db is nil.
func NewPostgresStore(db Querier) *PostgresStore {
	if db == nil {
		panic("usage: database is required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	return s.get(ctx, key)
}

func (s *PostgresStore) get(ctx context.Context, key Key) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, getUsageQuery, key.UserID, key.Feature, string(key.Day)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *PostgresStore) IncrementBy(ctx context.Context, key Key, amount int64) (int64, error) {
	if err := validateIncrement(key, amount); err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, incrementUsageQuery,
		key.UserID, key.Feature, string(key.Day), amount,
	).Scan(&n); err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *PostgresStore) IncrementCapped(ctx context.Context, key Key, amount, limit int64) (int64, bool, error) {
	if err := validateCapped(key, amount, limit); err != nil {
		return 0, false, err
	}

	// A zero limit can never apply; skip the insert so no empty row is created.
	if limit == 0 {
		n, err := s.get(ctx, key)
		return n, false, err
	}

	var n int64
	err := s.db.QueryRowContext(ctx, incrementCappedUsageQuery,
		key.UserID, key.Feature, string(key.Day), amount, limit,
	).Scan(&n)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		n, err := s.get(ctx, key)
		return n, false, err
	case err != nil:
		return 0, false, errors.Join(ErrStoreUnavailable, err)
	}
	return n, true, nil
}

func (s *PostgresStore) ListDay(ctx context.Context, userID uuid.UUID, day Day) (map[string]int64, error) {
	if err := validateListDay(userID, day); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, listDayUsageQuery, userID, string(day))
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			feature string
			n       int64
		)
		if err := rows.Scan(&feature, &n); err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		out[feature] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return out, nil
}
