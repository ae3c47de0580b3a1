package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/logger"
	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// CreateParams describes a new subscription record.
type CreateParams struct {
	UserID                 uuid.UUID
	Tier                   tier.Tier // empty means the lowest tier
	Status                 Status    // empty means active
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	ProviderCustomerID     string
	ProviderSubscriptionID string
	Metadata               map[string]any // attached to the creation event
}

// UpdateParams is a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	Tier                   *tier.Tier
	Status                 *Status
	CancelAtPeriodEnd      *bool
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	ProviderCustomerID     *string
	ProviderSubscriptionID *string
	Metadata               map[string]any // attached to the tier change event, if any
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for lifecycle changes.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithManagerNow replaces the wall-clock source. Intended for tests.
func WithManagerNow(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager creates, changes and cancels subscriptions and records every change as an event.
type Manager struct {
	catalog *tier.Catalog
	store   Store
	log     *slog.Logger
	now     func() time.Time
}

// NewManager creates a manager. Panics if catalog or store is nil.
func NewManager(catalog *tier.Catalog, store Store, opts ...ManagerOption) *Manager {
	if catalog == nil {
		panic("subscription: catalog is required")
	}
	if store == nil {
		panic("subscription: store is required")
	}

	m := &Manager{
		catalog: catalog,
		store:   store,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the user's record or ErrSubscriptionNotFound.
func (m *Manager) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return m.store.Get(ctx, userID)
}

// Events returns the user's subscription history, oldest first.
func (m *Manager) Events(ctx context.Context, userID uuid.UUID) ([]Event, error) {
	return m.store.Events(ctx, userID)
}

// Create inserts a new record and a subscription_created event.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*Subscription, error) {
	if p.UserID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if p.Tier == "" {
		p.Tier = m.catalog.Lowest()
	}
	if err := m.validateTier(p.Tier); err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !p.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}

	now := m.now()
	sub := &Subscription{
		ID:                     uuid.New(),
		UserID:                 p.UserID,
		Tier:                   p.Tier,
		Status:                 p.Status,
		CurrentPeriodStart:     cloneTime(p.CurrentPeriodStart),
		CurrentPeriodEnd:       cloneTime(p.CurrentPeriodEnd),
		ProviderCustomerID:     p.ProviderCustomerID,
		ProviderSubscriptionID: p.ProviderSubscriptionID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	ev := m.newEvent(sub, EventCreated, "", sub.Tier, p.Metadata)

	if err := m.store.Insert(ctx, sub, ev); err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "subscription created",
		logger.UserID(sub.UserID),
		logger.Tier(string(sub.Tier)),
		slog.String("status", string(sub.Status)),
	)
	return sub, nil
}

// Update applies a partial update. A tier change appends a subscription_changed event in
// the same write.
func (m *Manager) Update(ctx context.Context, userID uuid.UUID, p UpdateParams) (*Subscription, error) {
	if p.Tier != nil {
		if err := m.validateTier(*p.Tier); err != nil {
			return nil, err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}

	var previous tier.Tier
	sub, err := m.store.Update(ctx, userID, func(sub *Subscription) ([]Event, error) {
		previous = sub.Tier
		applyUpdate(sub, p)
		sub.UpdatedAt = m.now()

		if sub.Tier == previous {
			return nil, nil
		}
		return []Event{m.newEvent(sub, EventChanged, previous, sub.Tier, p.Metadata)}, nil
	})
	if err != nil {
		return nil, err
	}

	if sub.Tier != previous {
		m.log.InfoContext(ctx, "subscription tier changed",
			logger.UserID(userID),
			slog.String("previous_tier", string(previous)),
			logger.Tier(string(sub.Tier)),
		)
	}
	return sub, nil
}

// Cancel ends the subscription. An immediate cancel drops the user to the lowest tier right
// away; otherwise the record is flagged to cancel at the end of the current period.
func (m *Manager) Cancel(ctx context.Context, userID uuid.UUID, immediate bool) (*Subscription, error) {
	lowest := m.catalog.Lowest()

	sub, err := m.store.Update(ctx, userID, func(sub *Subscription) ([]Event, error) {
		previous := sub.Tier
		now := m.now()

		typ := EventCanceledAtPeriodEnd
		if immediate {
			typ = EventCanceledImmediate
			sub.Status = StatusCanceled
			sub.Tier = lowest
			sub.CancelAtPeriodEnd = false
			sub.CanceledAt = &now
		} else {
			sub.CancelAtPeriodEnd = true
		}
		sub.UpdatedAt = now

		return []Event{m.newEvent(sub, typ, previous, sub.Tier, map[string]any{"immediate": immediate})}, nil
	})
	if err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "subscription canceled",
		logger.UserID(userID),
		logger.Tier(string(sub.Tier)),
		slog.Bool("immediate", immediate),
	)
	return sub, nil
}

// Upgrade moves the user to a strictly higher tier than the one they are entitled to now,
// creating the record when the user has none. Upgrading reactivates a canceled or past due
// record.
func (m *Manager) Upgrade(ctx context.Context, userID uuid.UUID, target tier.Tier) (*Subscription, error) {
	if err := m.validateTier(target); err != nil {
		return nil, err
	}

	sub, err := m.store.Update(ctx, userID, func(sub *Subscription) ([]Event, error) {
		current := sub.Tier
		if !sub.IsActive() {
			current = m.catalog.Lowest()
		}
		if err := m.checkUpgrade(current, target); err != nil {
			return nil, err
		}

		previous := sub.Tier
		sub.Tier = target
		sub.Status = StatusActive
		sub.CancelAtPeriodEnd = false
		sub.CanceledAt = nil
		sub.UpdatedAt = m.now()

		return []Event{m.newEvent(sub, EventChanged, previous, target, map[string]any{"source": "upgrade"})}, nil
	})
	if errors.Is(err, ErrSubscriptionNotFound) {
		if err := m.checkUpgrade(m.catalog.Lowest(), target); err != nil {
			return nil, err
		}
		return m.Create(ctx, CreateParams{
			UserID:   userID,
			Tier:     target,
			Metadata: map[string]any{"source": "upgrade"},
		})
	}
	if err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "subscription upgraded",
		logger.UserID(userID),
		logger.Tier(string(target)),
	)
	return sub, nil
}

func (m *Manager) checkUpgrade(current, target tier.Tier) error {
	currentRank, _ := m.catalog.Rank(current)
	targetRank, _ := m.catalog.Rank(target)
	if targetRank <= currentRank {
		return fmt.Errorf("%w: already on %s", ErrInvalidUpgrade, current)
	}
	return nil
}

func (m *Manager) validateTier(t tier.Tier) error {
	if !m.catalog.Has(t) {
		return errors.Join(ErrUnknownTier, fmt.Errorf("tier %q", t))
	}
	return nil
}

func (m *Manager) newEvent(sub *Subscription, typ EventType, previous, next tier.Tier, metadata map[string]any) Event {
	return Event{
		ID:             uuid.New(),
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Type:           typ,
		PreviousTier:   previous,
		NewTier:        next,
		Metadata:       maps.Clone(metadata),
		CreatedAt:      m.now(),
	}
}

func applyUpdate(sub *Subscription, p UpdateParams) {
	if p.Tier != nil {
		sub.Tier = *p.Tier
	}
	if p.Status != nil {
		sub.Status = *p.Status
	}
	if p.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	if p.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = cloneTime(p.CurrentPeriodStart)
	}
	if p.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = cloneTime(p.CurrentPeriodEnd)
	}
	if p.ProviderCustomerID != nil {
		sub.ProviderCustomerID = *p.ProviderCustomerID
	}
	if p.ProviderSubscriptionID != nil {
		sub.ProviderSubscriptionID = *p.ProviderSubscriptionID
	}
}
