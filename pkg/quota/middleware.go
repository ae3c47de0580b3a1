package quota

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// UserIDFunc extracts the authenticated user from a request.
type UserIDFunc func(r *http.Request) (uuid.UUID, error)

// ErrorHandler renders a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type userIDCtxKey struct{}

// WithUserID stores the authenticated user id in the context.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, id)
}

// UserIDFromContext returns the user id stored by WithUserID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// ContextUserID reads the user id put in the request context by upstream authentication.
func ContextUserID() UserIDFunc {
	return func(r *http.Request) (uuid.UUID, error) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			return uuid.Nil, ErrMissingUserID
		}
		return id, nil
	}
}

// HeaderUserID reads the user id from a request header set by a trusted gateway.
func HeaderUserID(header string) UserIDFunc {
	return func(r *http.Request) (uuid.UUID, error) {
		raw := r.Header.Get(header)
		if raw == "" {
			return uuid.Nil, ErrMissingUserID
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("%w: malformed %s header", ErrMissingUserID, header)
		}
		return id, nil
	}
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithErrorHandler replaces the default JSON error rendering.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(m *Middleware) {
		if h != nil {
			m.onError = h
		}
	}
}

// Middleware builds chi-compatible gates from a Service.
type Middleware struct {
	svc     *Service
	userID  UserIDFunc
	onError ErrorHandler
	now     func() time.Time
}

// NewMiddleware creates a middleware factory. Panics if svc or userID is nil.
func NewMiddleware(svc *Service, userID UserIDFunc, opts ...MiddlewareOption) *Middleware {
	if svc == nil {
		panic("quota: service is required")
	}
	if userID == nil {
		panic("quota: user id func is required")
	}

	m := &Middleware{
		svc:     svc,
		userID:  userID,
		onError: func(w http.ResponseWriter, _ *http.Request, err error) { WriteError(w, err) },
		now:     svc.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequireTier rejects users ranked below required with 402. Panics if required is not in the catalog.
func (m *Middleware) RequireTier(required tier.Tier) func(http.Handler) http.Handler {
	minRank, ok := m.svc.catalog.Rank(required)
	if !ok {
		panic(fmt.Sprintf("quota: unknown tier %q", required))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.user(w, r)
			if !ok {
				return
			}

			current, err := m.svc.CurrentTier(r.Context(), id)
			if err != nil {
				m.onError(w, r, err)
				return
			}
			if rank, _ := m.svc.catalog.Rank(current); rank < minRank {
				m.onError(w, r, &TierRequiredError{CurrentTier: current, RequiredTier: required})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

// RequireFeature rejects users whose tier does not unlock feature with 402.
func (m *Middleware) RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.user(w, r)
			if !ok {
				return
			}

			acc, err := m.svc.CheckAccess(r.Context(), id, feature)
			if err != nil {
				m.onError(w, r, err)
				return
			}
			if err := acc.Err(); err != nil {
				m.onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

// RequireUsage rejects requests with 429 once the daily quota of feature is used up.
// It only reads the counter; pair it with TrackUsage or Service.TrackUsage to consume.
func (m *Middleware) RequireUsage(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.user(w, r)
			if !ok {
				return
			}

			res, err := m.svc.CheckUsage(r.Context(), id, feature)
			m.serve(w, r, next, id, res, err)
		})
	}
}

// TrackUsage consumes amount of the daily quota of feature before calling the handler
// and rejects the request with 429 when nothing is left. Panics if amount is not positive.
func (m *Middleware) TrackUsage(feature string, amount int64) func(http.Handler) http.Handler {
	if amount <= 0 {
		panic(fmt.Sprintf("quota: track amount must be positive, got %d", amount))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.user(w, r)
			if !ok {
				return
			}

			res, err := m.svc.TrackUsage(r.Context(), id, feature, amount)
			m.serve(w, r, next, id, res, err)
		})
	}
}

func (m *Middleware) serve(w http.ResponseWriter, r *http.Request, next http.Handler, id uuid.UUID, res *Result, err error) {
	if err != nil {
		m.onError(w, r, err)
		return
	}

	SetHeaders(w, res, m.now())
	if err := res.Err(); err != nil {
		m.onError(w, r, err)
		return
	}
	next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
}

func (m *Middleware) user(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := m.userID(r)
	if err != nil {
		m.onError(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}
