package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/featuregate/pkg/logger"
	"github.com/dmitrymomot/featuregate/pkg/quota"
	"github.com/dmitrymomot/featuregate/pkg/subscription"
	"github.com/dmitrymomot/featuregate/pkg/tier"
)

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger for unexpected failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// API serves the subscription and usage endpoints for the authenticated user.
type API struct {
	quota *quota.Service
	subs  *subscription.Manager
	log   *slog.Logger
}

// New creates the API. Panics if a dependency is nil.
func New(q *quota.Service, subs *subscription.Manager, opts ...Option) *API {
	if q == nil {
		panic("httpapi: quota service is required")
	}
	if subs == nil {
		panic("httpapi: subscription manager is required")
	}

	a := &API{
		quota: q,
		subs:  subs,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle returns the endpoint routes. The user must already be in the request
// context, see Authenticate.
func (a *API) Handle() http.Handler {
	r := chi.NewRouter()

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/me", a.me)
		r.Get("/summary", a.summary)
		r.Get("/events", a.events)
		r.Get("/feature-access/{feature}", a.featureAccess)
		r.Get("/usage-limits/{feature}", a.usageLimits)
		r.Get("/features", a.features)
		r.Get("/tier-limits", a.tierLimits)
		r.Post("/upgrade", a.upgrade)
		r.Post("/cancel", a.cancel)
	})
	r.Post("/usage/{feature}/track", a.track)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeError(w, ErrNotFound) })
	return r
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	sub, err := a.subs.Get(r.Context(), a.userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}

func (a *API) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := a.userID(r)

	resp := summaryResponse{Status: "none"}
	sub, err := a.subs.Get(ctx, userID)
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
	case err != nil:
		a.fail(w, r, err)
		return
	default:
		resp.Status = string(sub.Status)
		resp.IsActive = sub.IsActive()
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd
		resp.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	}

	if resp.Tier, err = a.quota.CurrentTier(ctx, userID); err != nil {
		a.fail(w, r, err)
		return
	}
	if resp.FeatureUsage, err = a.quota.Summary(ctx, userID); err != nil {
		a.fail(w, r, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) events(w http.ResponseWriter, r *http.Request) {
	evs, err := a.subs.Events(r.Context(), a.userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	out := make([]eventResponse, 0, len(evs))
	for _, ev := range evs {
		out = append(out, eventResponse{
			ID:           ev.ID,
			Type:         ev.Type,
			PreviousTier: ev.PreviousTier,
			NewTier:      ev.NewTier,
			Metadata:     ev.Metadata,
			CreatedAt:    ev.CreatedAt,
		})
	}
	quota.WriteJSON(w, http.StatusOK, out)
}

func (a *API) featureAccess(w http.ResponseWriter, r *http.Request) {
	acc, err := a.quota.CheckAccess(r.Context(), a.userID(r), chi.URLParam(r, "feature"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, featureAccessResponse{
		Feature:      acc.Feature,
		HasAccess:    acc.Allowed,
		CurrentTier:  acc.CurrentTier,
		RequiredTier: acc.RequiredTier,
	})
}

func (a *API) usageLimits(w http.ResponseWriter, r *http.Request) {
	res, err := a.quota.CheckUsage(r.Context(), a.userID(r), chi.URLParam(r, "feature"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	now := a.quota.Now()
	quota.SetHeaders(w, res, now)
	quota.WriteJSON(w, http.StatusOK, newUsageLimitResponse(res, now))
}

func (a *API) features(w http.ResponseWriter, r *http.Request) {
	fs, err := a.quota.Features(r.Context(), a.userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, fs)
}

func (a *API) tierLimits(w http.ResponseWriter, _ *http.Request) {
	quota.WriteJSON(w, http.StatusOK, a.quota.Catalog().AllLimits())
}

func (a *API) upgrade(w http.ResponseWriter, r *http.Request) {
	target := tier.Tier(r.URL.Query().Get("tier"))
	if target == "" {
		writeError(w, errors.Join(ErrInvalidQuery, errors.New("tier is required")))
		return
	}

	sub, err := a.subs.Upgrade(r.Context(), a.userID(r), target)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}

func (a *API) cancel(w http.ResponseWriter, r *http.Request) {
	immediate := false
	if raw := r.URL.Query().Get("immediate"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, errors.Join(ErrInvalidQuery, err))
			return
		}
		immediate = v
	}

	sub, err := a.subs.Cancel(r.Context(), a.userID(r), immediate)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}

func (a *API) track(w http.ResponseWriter, r *http.Request) {
	amount := int64(1)
	if raw := r.URL.Query().Get("amount"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, errors.Join(ErrInvalidQuery, err))
			return
		}
		amount = v
	}

	res, err := a.quota.TrackUsage(r.Context(), a.userID(r), chi.URLParam(r, "feature"), amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	now := a.quota.Now()
	quota.SetHeaders(w, res, now)
	if err := res.Err(); err != nil {
		writeError(w, err)
		return
	}
	quota.WriteJSON(w, http.StatusOK, newUsageLimitResponse(res, now))
}

func (a *API) userID(r *http.Request) uuid.UUID {
	id, _ := quota.UserIDFromContext(r.Context())
	return id
}

// fail writes err. Server side failures are logged, the client only sees the key.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusCode(err) >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed", logger.Error(err))
	}
	writeError(w, err)
}
