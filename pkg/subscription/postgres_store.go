package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/pg"
	"github.com/dmitrymomot/featuregate/pkg/tier"
)

const subscriptionColumns = `id, user_id, subscription_tier, status, cancel_at_period_end,
current_period_start, current_period_end, provider_customer_id, provider_subscription_id,
canceled_at, created_at, updated_at`

const (
	getSubscriptionQuery = `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1`

	lockSubscriptionQuery = getSubscriptionQuery + ` FOR UPDATE`

	insertSubscriptionQuery = `INSERT INTO user_subscriptions (` + subscriptionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updateSubscriptionQuery = `UPDATE user_subscriptions SET subscription_tier = $2, status = $3,
cancel_at_period_end = $4, current_period_start = $5, current_period_end = $6,
provider_customer_id = $7, provider_subscription_id = $8, canceled_at = $9, updated_at = $10
WHERE user_id = $1`

	insertEventQuery = `INSERT INTO subscription_events
(id, user_id, subscription_id, event_type, previous_tier, new_tier, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listEventsQuery = `SELECT id, user_id, subscription_id, event_type, previous_tier, new_tier, metadata, created_at
FROM subscription_events WHERE user_id = $1 ORDER BY created_at, id`
)

// PostgresStore implements Store on the user_subscriptions and subscription_events tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over db. Panics if db is nil.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("subscription: database is required")
	}
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, getSubscriptionQuery, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return sub, nil
}

func (s *PostgresStore) Insert(ctx context.Context, sub *Subscription, events ...Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertSubscriptionQuery,
		sub.ID, sub.UserID, string(sub.Tier), string(sub.Status), sub.CancelAtPeriodEnd,
		nullTime(sub.CurrentPeriodStart), nullTime(sub.CurrentPeriodEnd),
		sub.ProviderCustomerID, sub.ProviderSubscriptionID,
		nullTime(sub.CanceledAt), sub.CreatedAt, sub.UpdatedAt,
	); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrSubscriptionAlreadyExists
		}
		return errors.Join(ErrStoreFailure, err)
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, userID uuid.UUID, fn UpdateFunc) (*Subscription, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	sub, err := scanSubscription(tx.QueryRowContext(ctx, lockSubscriptionQuery, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	events, err := fn(sub)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, updateSubscriptionQuery,
		userID, string(sub.Tier), string(sub.Status), sub.CancelAtPeriodEnd,
		nullTime(sub.CurrentPeriodStart), nullTime(sub.CurrentPeriodEnd),
		sub.ProviderCustomerID, sub.ProviderSubscriptionID,
		nullTime(sub.CanceledAt), sub.UpdatedAt,
	); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return sub, nil
}

func (s *PostgresStore) Events(ctx context.Context, userID uuid.UUID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, listEventsQuery, userID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			typ      string
			previous sql.NullString
			next     sql.NullString
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.SubscriptionID, &typ, &previous, &next, &metadata, &e.CreatedAt); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		e.Type = EventType(typ)
		e.PreviousTier = tier.Tier(previous.String)
		e.NewTier = tier.Tier(next.String)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, errors.Join(ErrStoreFailure, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return out, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, events []Event) error {
	for _, e := range events {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
		if _, err := tx.ExecContext(ctx, insertEventQuery,
			e.ID, e.UserID, e.SubscriptionID, string(e.Type),
			nullString(string(e.PreviousTier)), nullString(string(e.NewTier)),
			metadata, e.CreatedAt,
		); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
	}
	return nil
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var (
		sub                    Subscription
		tierName, status       string
		periodStart, periodEnd sql.NullTime
		canceledAt             sql.NullTime
	)
	if err := row.Scan(
		&sub.ID, &sub.UserID, &tierName, &status, &sub.CancelAtPeriodEnd,
		&periodStart, &periodEnd, &sub.ProviderCustomerID, &sub.ProviderSubscriptionID,
		&canceledAt, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.Tier = tier.Tier(tierName)
	sub.Status = Status(status)
	sub.CurrentPeriodStart = timePtr(periodStart)
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	sub.CanceledAt = timePtr(canceledAt)
	return &sub, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
