// Package httpapi exposes subscription state and usage quotas over HTTP.
//
// API.Handle serves the per-user endpoints:
//
//	GET  /subscriptions/me
//	GET  /subscriptions/summary
//	GET  /subscriptions/events
//	GET  /subscriptions/feature-access/{feature}
//	GET  /subscriptions/usage-limits/{feature}
//	GET  /subscriptions/features
//	GET  /subscriptions/tier-limits
//	POST /subscriptions/upgrade?tier=
//	POST /subscriptions/cancel?immediate=
//	POST /usage/{feature}/track?amount=
//
// The user id is expected in the request context. Router wires Authenticate in
// front of the API together with request ids, panic recovery and access logs,
// and mounts optional health and metrics handlers outside of authentication.
//
// Errors are rendered as {"error": "<key>"} where the key is the sentinel error
// text, e.g. "quota.errors.quota_exceeded" with 429 or
// "subscription.errors.not_found" with 404. Usage responses carry the
// X-RateLimit-* headers.
package httpapi
