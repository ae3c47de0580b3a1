// Package usage stores per-user, per-feature daily counters.
//
// A counter is addressed by a Key: user id, feature name and the calendar Day in the
// service's reference timezone. Counters only grow; a new day starts a new key, which
// is what makes the quota window reset at midnight without any background job.
//
// Three Store implementations are provided:
//
//   - MemoryStore keeps counters in a mutex-guarded map. Suitable for tests and
//     single-instance deployments.
//   - RedisStore keeps one hash per user and day and performs the capped increment in
//     a Lua script.
//   - PostgresStore upserts into the feature_usage table created by the pg migrations.
//
// All of them implement IncrementCapped atomically, so concurrent callers racing on the
// last unit of a quota can never push a counter past its limit.
//
//	clock := usage.NewClock(time.UTC)
//	store := usage.NewMemoryStore()
//	key := usage.NewKey(userID, "ask_questions", clock.Today())
//	total, applied, err := store.IncrementCapped(ctx, key, 1, 10)
//
// Backend failures are reported wrapped in ErrStoreUnavailable.
package usage
