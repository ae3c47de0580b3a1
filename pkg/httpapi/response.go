package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/quota"
	"github.com/dmitrymomot/featuregate/pkg/subscription"
	"github.com/dmitrymomot/featuregate/pkg/tier"
)

type subscriptionResponse struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	Tier               tier.Tier           `json:"subscription_tier"`
	Status             subscription.Status `json:"status"`
	IsActive           bool                `json:"is_active"`
	CancelAtPeriodEnd  bool                `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time          `json:"current_period_end"`
	CanceledAt         *time.Time          `json:"canceled_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func newSubscriptionResponse(s *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                 s.ID,
		UserID:             s.UserID,
		Tier:               s.Tier,
		Status:             s.Status,
		IsActive:           s.IsActive(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CanceledAt:         s.CanceledAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

type eventResponse struct {
	ID           uuid.UUID              `json:"id"`
	Type         subscription.EventType `json:"event_type"`
	PreviousTier tier.Tier              `json:"previous_tier,omitempty"`
	NewTier      tier.Tier              `json:"new_tier,omitempty"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type summaryResponse struct {
	Tier              tier.Tier                     `json:"tier"`
	Status            string                        `json:"status"`
	IsActive          bool                          `json:"is_active"`
	CurrentPeriodEnd  *time.Time                    `json:"current_period_end"`
	CancelAtPeriodEnd bool                          `json:"cancel_at_period_end"`
	FeatureUsage      map[string]quota.FeatureUsage `json:"feature_usage"`
}

type featureAccessResponse struct {
	Feature      string    `json:"feature_name"`
	HasAccess    bool      `json:"has_access"`
	CurrentTier  tier.Tier `json:"current_tier"`
	RequiredTier tier.Tier `json:"required_tier,omitempty"`
}

type usageLimitResponse struct {
	Feature        string     `json:"feature_name"`
	HasLimit       bool       `json:"has_limit"`
	CurrentTier    tier.Tier  `json:"current_tier"`
	Allowed        bool       `json:"allowed"`
	Remaining      int64      `json:"remaining"`
	DailyLimit     *int64     `json:"daily_limit,omitempty"`
	Used           *int64     `json:"used,omitempty"`
	ResetTime      *time.Time `json:"reset_time,omitempty"`
	ResetInSeconds *int64     `json:"reset_in_seconds,omitempty"`
	Message        string     `json:"message,omitempty"`
}

func newUsageLimitResponse(res *quota.Result, now time.Time) usageLimitResponse {
	out := usageLimitResponse{
		Feature:     res.Feature,
		HasLimit:    res.HasLimit,
		CurrentTier: res.Tier,
		Allowed:     res.Allowed,
		Remaining:   res.Remaining,
	}
	if !res.HasLimit {
		out.Message = "This feature does not have usage limits for your subscription tier"
		return out
	}

	limit, used, resetAt := res.Limit, res.Used, res.ResetAt
	resetIn := int64(res.ResetIn(now).Seconds())
	out.DailyLimit = &limit
	out.Used = &used
	out.ResetTime = &resetAt
	out.ResetInSeconds = &resetIn
	return out
}
