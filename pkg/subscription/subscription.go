package subscription

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// Status is the lifecycle status of a subscription record.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusPastDue  Status = "past_due"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusPastDue:
		return true
	}
	return false
}

// Subscription is the stored subscription of a single user.
// Each user has at most one record, so UserID is the natural key.
type Subscription struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	Tier                   tier.Tier
	Status                 Status
	CancelAtPeriodEnd      bool
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	ProviderCustomerID     string // external billing customer, empty when unbilled
	ProviderSubscriptionID string
	CanceledAt             *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsActive returns true if the subscription grants its stored tier.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.CurrentPeriodStart = cloneTime(s.CurrentPeriodStart)
	c.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	c.CanceledAt = cloneTime(s.CanceledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// EventType names an entry in the subscription history.
type EventType string

const (
	EventCreated             EventType = "subscription_created"
	EventChanged             EventType = "subscription_changed"
	EventCanceledImmediate   EventType = "subscription_canceled_immediate"
	EventCanceledAtPeriodEnd EventType = "subscription_canceled_period_end"
)

// Event is an append-only record of a subscription change.
// PreviousTier is empty for creation events.
type Event struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	Type           EventType
	PreviousTier   tier.Tier
	NewTier        tier.Tier
	Metadata       map[string]any
	CreatedAt      time.Time
}

// Clone returns a copy with its own metadata map.
func (e Event) Clone() Event {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}
