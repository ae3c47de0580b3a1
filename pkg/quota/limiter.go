package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/logger"
	"github.com/dmitrymomot/featuregate/pkg/tier"
	"github.com/dmitrymomot/featuregate/pkg/usage"
)

// TierResolver maps a user to the tier they are entitled to right now.
// *subscription.Resolver satisfies it.
type TierResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (tier.Tier, error)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the day clock deciding where the daily window starts. Default is UTC.
func WithClock(c usage.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithLogger sets the logger. Store failures are logged at error level, denials at debug.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// WithMetrics records decisions and store failures.
func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithStoreTimeout bounds every tier lookup and counter call. Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		if d >= 0 {
			l.timeout = d
		}
	}
}

// Limiter enforces per-feature daily quotas. It keeps no state of its own;
// every decision is made against the counter store.
type Limiter struct {
	catalog  *tier.Catalog
	resolver TierResolver
	store    usage.Store
	clock    usage.Clock
	log      *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
}

// NewLimiter creates a limiter. Panics if catalog, resolver or store is nil.
func NewLimiter(catalog *tier.Catalog, resolver TierResolver, store usage.Store, opts ...Option) *Limiter {
	if catalog == nil {
		panic("quota: catalog is required")
	}
	if resolver == nil {
		panic("quota: resolver is required")
	}
	if store == nil {
		panic("quota: store is required")
	}

	l := &Limiter{
		catalog:  catalog,
		resolver: resolver,
		store:    store,
		clock:    usage.NewClock(time.UTC),
		log:      slog.New(slog.DiscardHandler),
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports the quota state of feature for the user without recording usage.
// Repeated calls with no tracking in between return the same remaining count.
func (l *Limiter) Check(ctx context.Context, userID uuid.UUID, feature string) (*Result, error) {
	d, err := l.prepare(ctx, userID, feature, modeCheck)
	if err != nil {
		return nil, err
	}
	if d.final {
		return d.res, nil
	}

	res, limit := d.res, d.res.Limit
	key := usage.NewKey(userID, feature, d.day)
	used, err := l.withTimeout(ctx, func(ctx context.Context) (int64, error) {
		return l.store.Get(ctx, key)
	})
	if err != nil {
		return nil, l.storeFailure(ctx, "get", userID, feature, err)
	}

	res.Used = used
	res.Remaining = max(limit-used, 0)
	res.Allowed = res.Remaining > 0
	return l.finish(ctx, userID, res, modeCheck), nil
}

// Track records amount uses of feature if the quota allows it. The increment is capped
// at the limit, so a request for more than what is left consumes only the rest.
// A denied result never writes.
func (l *Limiter) Track(ctx context.Context, userID uuid.UUID, feature string, amount int64) (*Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidAmount, amount)
	}

	d, err := l.prepare(ctx, userID, feature, modeTrack)
	if err != nil {
		return nil, err
	}
	if d.final {
		return d.res, nil
	}

	res, limit := d.res, d.res.Limit
	key := usage.NewKey(userID, feature, d.day)
	var applied bool
	total, err := l.withTimeout(ctx, func(ctx context.Context) (total int64, err error) {
		total, applied, err = l.store.IncrementCapped(ctx, key, amount, limit)
		return total, err
	})
	if err != nil {
		return nil, l.storeFailure(ctx, "increment", userID, feature, err)
	}

	res.Used = total
	res.Allowed = applied
	if applied {
		res.Remaining = max(limit-total, 0)
	}
	return l.finish(ctx, userID, res, modeTrack), nil
}

// Summary returns the usage of every metered feature of the user's tier for today.
func (l *Limiter) Summary(ctx context.Context, userID uuid.UUID) (map[string]FeatureUsage, error) {
	t, err := l.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	resetAt := l.clock.NextReset(now)
	limits := l.catalog.Limits(t)
	out := make(map[string]FeatureUsage, len(limits))
	if len(limits) == 0 {
		return out, nil
	}

	var counts map[string]int64
	if _, err := l.withTimeout(ctx, func(ctx context.Context) (int64, error) {
		var err error
		counts, err = l.store.ListDay(ctx, userID, l.clock.DayOf(now))
		return 0, err
	}); err != nil {
		return nil, l.storeFailure(ctx, "list", userID, "", err)
	}

	for feature, limit := range limits {
		used := counts[feature]
		out[feature] = FeatureUsage{
			Limit:     limit,
			Used:      used,
			Remaining: max(limit-used, 0),
			ResetAt:   resetAt,
		}
	}
	return out, nil
}

// pending is a decision that has not consulted the counter yet.
type pending struct {
	res   *Result
	day   usage.Day
	final bool // no counter is involved, res is the answer
}

// prepare runs the steps shared by Check and Track: feature lookup, tier resolution
// and the short-circuits that need no counter.
func (l *Limiter) prepare(ctx context.Context, userID uuid.UUID, feature, mode string) (pending, error) {
	if !l.catalog.Known(feature) && !l.catalog.Metered(feature) {
		return pending{}, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}

	t, err := l.resolve(ctx, userID)
	if err != nil {
		l.metrics.decision(feature, "", mode, outcomeError)
		return pending{}, err
	}

	now := l.clock.Now()
	res := &Result{
		Feature: feature,
		Tier:    t,
		ResetAt: l.clock.NextReset(now),
	}

	limit, tracked := l.catalog.LimitFor(t, feature)
	if !tracked {
		res.LimitType = LimitNone
		res.Allowed = true
		res.Remaining = NoLimitRemaining
		l.metrics.decision(feature, string(t), mode, outcomeUntracked)
		return pending{res: res, final: true}, nil
	}

	res.LimitType = LimitDaily
	res.HasLimit = true
	res.Limit = limit
	if limit == 0 {
		// Disabled at this tier regardless of the counter.
		return pending{res: l.finish(ctx, userID, res, mode), final: true}, nil
	}
	return pending{res: res, day: l.clock.DayOf(now)}, nil
}

func (l *Limiter) finish(ctx context.Context, userID uuid.UUID, res *Result, mode string) *Result {
	if res.Allowed {
		l.metrics.decision(res.Feature, string(res.Tier), mode, outcomeAllowed)
		return res
	}

	res.Remaining = 0
	res.UpgradeRequired = res.Tier != l.catalog.Highest()
	l.metrics.decision(res.Feature, string(res.Tier), mode, outcomeDenied)
	l.log.DebugContext(ctx, "quota denied",
		logger.UserID(userID),
		logger.Feature(res.Feature),
		logger.Tier(string(res.Tier)),
		slog.String("mode", mode),
		slog.Int64("limit", res.Limit),
		slog.Int64("used", res.Used),
	)
	return res
}

func (l *Limiter) resolve(ctx context.Context, userID uuid.UUID) (tier.Tier, error) {
	if userID == uuid.Nil {
		return "", ErrMissingUserID
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	t, err := l.resolver.Resolve(ctx, userID)
	if err != nil {
		return "", l.storeFailure(ctx, "resolve", userID, "", err)
	}
	if !l.catalog.Has(t) {
		// Stored tiers missing from the catalog get the lowest tier's features and limits.
		lowest := l.catalog.Lowest()
		l.log.WarnContext(ctx, "stored tier not in catalog, using lowest tier",
			logger.UserID(userID),
			logger.Tier(string(t)),
			slog.String("fallback_tier", string(lowest)),
			logger.Error(fmt.Errorf("%w: %q", tier.ErrUnknownTier, t)),
		)
		return lowest, nil
	}
	return t, nil
}

func (l *Limiter) withTimeout(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// storeFailure logs and wraps a backend error. The caller must deny.
func (l *Limiter) storeFailure(ctx context.Context, op string, userID uuid.UUID, feature string, err error) error {
	l.metrics.storeError(op)

	attrs := []any{
		logger.UserID(userID),
		slog.String("op", op),
		logger.Error(err),
	}
	if feature != "" {
		attrs = append(attrs, logger.Feature(feature))
	}
	l.log.ErrorContext(ctx, "quota store call failed, denying", attrs...)

	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
