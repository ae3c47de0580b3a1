package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/featuregate/pkg/quota"
)

// RouterOptions holds everything the process router mounts.
type RouterOptions struct {
	API    *API
	UserID quota.UserIDFunc // required
	Logger *slog.Logger

	// Optional unauthenticated endpoints.
	Metrics http.Handler
	Live    http.Handler
	Ready   http.Handler
}

// Router builds the process router: request ids, panic recovery and access logs
// for every route, authentication for the API routes only.
func Router(opts RouterOptions) chi.Router {
	if opts.API == nil {
		panic("httpapi: api is required")
	}
	if opts.UserID == nil {
		panic("httpapi: user id func is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(log))

	if opts.Live != nil {
		r.Method(http.MethodGet, "/health/live", opts.Live)
	}
	if opts.Ready != nil {
		r.Method(http.MethodGet, "/health/ready", opts.Ready)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(opts.UserID))
		r.Mount("/", opts.API.Handle())
	})

	return r
}
