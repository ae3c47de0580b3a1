package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/featuregate/pkg/tier"
)

var (
	ErrUnknownFeature = errors.New("quota.errors.unknown_feature")
	ErrTierRequired   = errors.New("quota.errors.tier_required")
	ErrQuotaExceeded  = errors.New("quota.errors.quota_exceeded")
	ErrInvalidAmount  = errors.New("quota.errors.invalid_amount")
	ErrMissingUserID  = errors.New("quota.errors.missing_user_id")

	// ErrStoreUnavailable means the decision could not be made; the request is denied.
	ErrStoreUnavailable = errors.New("quota.errors.store_unavailable")
)

// TierRequiredError is returned when a feature exists but is locked at the caller's tier.
type TierRequiredError struct {
	Feature      string
	CurrentTier  tier.Tier
	RequiredTier tier.Tier
}

func (e *TierRequiredError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("tier %q required, current tier is %q", e.RequiredTier, e.CurrentTier)
	}
	return fmt.Sprintf("feature %q requires tier %q, current tier is %q", e.Feature, e.RequiredTier, e.CurrentTier)
}

// Is makes errors.Is(err, ErrTierRequired) match.
func (e *TierRequiredError) Is(target error) bool {
	return target == ErrTierRequired
}

// QuotaExceededError is returned when the daily limit of a feature is used up.
type QuotaExceededError struct {
	Feature         string
	Tier            tier.Tier
	Limit           int64
	Used            int64
	ResetAt         time.Time
	UpgradeRequired bool
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily limit of %d for %q reached at tier %q, resets at %s",
		e.Limit, e.Feature, e.Tier, e.ResetAt.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrQuotaExceeded) match.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
