package quota

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Response headers describing a quota or access decision.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderTierLevel          = "X-Tier-Level"
	HeaderUpgradeRequired    = "X-Upgrade-Required"
	HeaderCurrentTier        = "X-Current-Tier"
	HeaderRequiredTier       = "X-Required-Tier"
	HeaderFeatureName        = "X-Feature-Name"
	HeaderRetryAfter         = "Retry-After"
)

// Headers renders a quota result as rate limit headers. The reset header carries the
// whole seconds left until the daily window ends, rounded up; untracked features report 0.
func Headers(res *Result, now time.Time) http.Header {
	h := make(http.Header, 5)
	if res == nil {
		return h
	}

	var reset int64
	if res.HasLimit {
		reset = int64(math.Ceil(res.ResetIn(now).Seconds()))
	}

	h.Set(HeaderRateLimitLimit, strconv.FormatInt(res.Limit, 10))
	h.Set(HeaderRateLimitRemaining, strconv.FormatInt(res.Remaining, 10))
	h.Set(HeaderRateLimitReset, strconv.FormatInt(reset, 10))
	h.Set(HeaderTierLevel, string(res.Tier))
	h.Set(HeaderUpgradeRequired, strconv.FormatBool(res.UpgradeRequired))
	return h
}

// SetHeaders copies Headers(res, now) onto w. Denied results also get Retry-After.
func SetHeaders(w http.ResponseWriter, res *Result, now time.Time) {
	h := Headers(res, now)
	for k, v := range h {
		w.Header()[k] = v
	}
	if res != nil && !res.Allowed && res.HasLimit {
		w.Header().Set(HeaderRetryAfter, h.Get(HeaderRateLimitReset))
	}
}

// AccessHeaders describes a locked feature for a 402 response.
func AccessHeaders(acc *Access) http.Header {
	h := make(http.Header, 4)
	if acc == nil {
		return h
	}
	h.Set(HeaderCurrentTier, string(acc.CurrentTier))
	h.Set(HeaderUpgradeRequired, strconv.FormatBool(!acc.Allowed))
	if acc.RequiredTier != "" {
		h.Set(HeaderRequiredTier, string(acc.RequiredTier))
	}
	if acc.Feature != "" {
		h.Set(HeaderFeatureName, acc.Feature)
	}
	return h
}
