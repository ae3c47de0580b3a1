package quota

import (
	"time"

	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// NoLimitRemaining is reported as the remaining count of untracked features.
const NoLimitRemaining int64 = 9999

// LimitType tells whether a feature is metered at the caller's tier.
type LimitType string

const (
	LimitNone  LimitType = "none"
	LimitDaily LimitType = "daily"
)

// Result is a single rate limit decision for one user and feature.
type Result struct {
	Feature         string    `json:"feature"`
	Tier            tier.Tier `json:"tier"`
	LimitType       LimitType `json:"limit_type"`
	HasLimit        bool      `json:"has_limit"`
	Allowed         bool      `json:"allowed"`
	Limit           int64     `json:"limit"`
	Used            int64     `json:"used"`
	Remaining       int64     `json:"remaining"`
	ResetAt         time.Time `json:"reset_at"`
	UpgradeRequired bool      `json:"upgrade_required"`
}

// ResetIn returns the time left until the counter resets, never negative.
func (r *Result) ResetIn(now time.Time) time.Duration {
	return max(r.ResetAt.Sub(now), 0)
}

// Err returns a *QuotaExceededError for a denied result and nil otherwise.
func (r *Result) Err() error {
	if r.Allowed {
		return nil
	}
	return &QuotaExceededError{
		Feature:         r.Feature,
		Tier:            r.Tier,
		Limit:           r.Limit,
		Used:            r.Used,
		ResetAt:         r.ResetAt,
		UpgradeRequired: r.UpgradeRequired,
	}
}

// Access is the outcome of a feature access check.
type Access struct {
	Feature      string    `json:"feature"`
	Allowed      bool      `json:"allowed"`
	CurrentTier  tier.Tier `json:"current_tier"`
	RequiredTier tier.Tier `json:"required_tier,omitempty"`
}

// Err returns a *TierRequiredError when the feature is locked and nil otherwise.
func (a *Access) Err() error {
	if a.Allowed {
		return nil
	}
	return &TierRequiredError{
		Feature:      a.Feature,
		CurrentTier:  a.CurrentTier,
		RequiredTier: a.RequiredTier,
	}
}

// FeatureUsage is one row of a usage summary.
type FeatureUsage struct {
	Limit     int64     `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
