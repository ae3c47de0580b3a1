package quota

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/logger"
	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// FeatureSet lists what the user's tier unlocks and what the next tier would add.
type FeatureSet struct {
	CurrentTier      tier.Tier `json:"current_tier"`
	DisplayName      string    `json:"display_name"`
	Features         []string  `json:"available_features"`
	NextTier         tier.Tier `json:"next_tier,omitempty"`
	NextTierFeatures []string  `json:"next_tier_features"`
}

// Service is the entry point for request handlers: feature access, usage checks and tracking.
type Service struct {
	catalog *tier.Catalog
	limiter *Limiter
}

// NewService wraps a limiter. Panics if limiter is nil.
func NewService(limiter *Limiter) *Service {
	if limiter == nil {
		panic("quota: limiter is required")
	}
	return &Service{catalog: limiter.catalog, limiter: limiter}
}

// Catalog returns the tier catalog decisions are made against.
func (s *Service) Catalog() *tier.Catalog {
	return s.catalog
}

// CheckAccess reports whether the user's tier unlocks feature.
// A feature no tier lists yields ErrUnknownFeature; a locked one is a non-nil Access
// whose Err returns *TierRequiredError.
func (s *Service) CheckAccess(ctx context.Context, userID uuid.UUID, feature string) (*Access, error) {
	required, ok := s.catalog.RequiredTier(feature)
	if !ok {
		s.limiter.metrics.access(feature, outcomeError)
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}

	current, err := s.limiter.resolve(ctx, userID)
	if err != nil {
		s.limiter.metrics.access(feature, outcomeError)
		return nil, err
	}

	acc := &Access{
		Feature:     feature,
		Allowed:     s.catalog.HasAccess(current, feature),
		CurrentTier: current,
	}
	if acc.Allowed {
		s.limiter.metrics.access(feature, outcomeAllowed)
		return acc, nil
	}

	acc.RequiredTier = required
	s.limiter.metrics.access(feature, outcomeDenied)
	s.limiter.log.DebugContext(ctx, "feature locked",
		logger.UserID(userID),
		logger.Feature(feature),
		logger.Tier(string(current)),
	)
	return acc, nil
}

// CheckUsage reports the remaining daily quota of feature without consuming it.
func (s *Service) CheckUsage(ctx context.Context, userID uuid.UUID, feature string) (*Result, error) {
	return s.limiter.Check(ctx, userID, feature)
}

// TrackUsage consumes amount of the daily quota of feature.
func (s *Service) TrackUsage(ctx context.Context, userID uuid.UUID, feature string, amount int64) (*Result, error) {
	return s.limiter.Track(ctx, userID, feature, amount)
}

// Summary returns today's usage of every metered feature of the user's tier.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (map[string]FeatureUsage, error) {
	return s.limiter.Summary(ctx, userID)
}

// Features lists the user's available features and the ones the next tier adds.
func (s *Service) Features(ctx context.Context, userID uuid.UUID) (*FeatureSet, error) {
	current, err := s.limiter.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	fs := &FeatureSet{
		CurrentTier:      current,
		DisplayName:      s.catalog.DisplayName(current),
		Features:         s.catalog.FeaturesFor(current),
		NextTierFeatures: []string{},
	}

	next, ok := s.catalog.Next(current)
	if !ok {
		return fs, nil
	}
	fs.NextTier = next
	for _, f := range s.catalog.FeaturesFor(next) {
		if !slices.Contains(fs.Features, f) {
			fs.NextTierFeatures = append(fs.NextTierFeatures, f)
		}
	}
	return fs, nil
}

// CurrentTier returns the tier the user is entitled to right now.
func (s *Service) CurrentTier(ctx context.Context, userID uuid.UUID) (tier.Tier, error) {
	return s.limiter.resolve(ctx, userID)
}

// Now returns the current time of the limiter's day clock.
func (s *Service) Now() time.Time {
	return s.limiter.clock.Now()
}
