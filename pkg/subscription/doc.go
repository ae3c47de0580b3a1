// Package subscription keeps the per-user subscription record, resolves the tier a user
// is entitled to, and manages the subscription lifecycle.
//
// # Resolution
//
// A user without a record is on the lowest tier of the catalog. A user with a record gets
// the stored tier only while the status is active; canceled and past due records fall back
// to the lowest tier. Resolver.State exposes the two cases as a sealed sum type:
//
//	st, err := resolver.State(ctx, userID)
//	switch s := st.(type) {
//	case subscription.DefaultState:
//		// no record, s.Tier is the lowest tier
//	case subscription.RecordedState:
//		// s.Subscription holds the stored record
//	}
//
// Store failures are returned to the caller unchanged. Quota enforcement treats them as
// fatal and denies the request.
//
// # Lifecycle
//
// Manager performs create, update, cancel and upgrade operations. Every change of tier and
// every cancellation is appended to the user's event history in the same write as the
// record itself:
//
//	manager := subscription.NewManager(catalog, subscription.NewMemoryStore())
//	sub, err := manager.Upgrade(ctx, userID, tier.Premium)
//	if errors.Is(err, subscription.ErrInvalidUpgrade) {
//		// already on premium or higher
//	}
//
// Cancel with immediate=true drops the user to the lowest tier at once. Otherwise the
// record is only flagged with CancelAtPeriodEnd and keeps its tier.
//
// # Storage
//
// MemoryStore serves tests and single-process deployments. PostgresStore works over
// database/sql and locks the row with SELECT ... FOR UPDATE while an update runs.
package subscription
