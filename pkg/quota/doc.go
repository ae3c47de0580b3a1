// Package quota decides whether a user may use a feature right now.
//
// Two kinds of gates are combined here. Feature access is static: the user's tier
// either unlocks a feature or it does not, and a locked feature is reported with the
// lowest tier that unlocks it. Usage quotas are dynamic: metered features have a
// daily cap per tier, counted in a usage.Store and reset at midnight of the
// limiter's reference timezone.
//
// Limiter makes quota decisions. Check reads the counter, Track consumes from it
// with a single capped increment, so concurrent callers can never push a counter
// past its limit. When the tier or the counter cannot be read the limiter fails
// closed and returns ErrStoreUnavailable; it never reports Allowed alongside an error.
//
// Service is the facade used by handlers, and Middleware turns it into
// http.Handler gates (RequireTier, RequireFeature, RequireUsage, TrackUsage).
//
// # Usage
//
//	resolver := subscription.NewResolver(catalog, subStore)
//	limiter := quota.NewLimiter(catalog, resolver, usageStore,
//		quota.WithClock(usage.NewClock(loc)),
//		quota.WithMetrics(quota.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	svc := quota.NewService(limiter)
//
//	mw := quota.NewMiddleware(svc, quota.HeaderUserID("X-User-ID"))
//	r.With(mw.RequireFeature("advanced_ask"), mw.TrackUsage("ask_questions", 1)).
//		Post("/ask", askHandler)
//
// # Errors
//
// Decision errors are classified with errors.Is: ErrUnknownFeature (404),
// ErrTierRequired (402, *TierRequiredError), ErrQuotaExceeded (429,
// *QuotaExceededError), ErrInvalidAmount (400), ErrMissingUserID (401) and
// ErrStoreUnavailable (503). StatusCode and WriteError apply that mapping.
package quota
