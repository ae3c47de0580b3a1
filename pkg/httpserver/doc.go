// Package httpserver runs the featuregate HTTP API with graceful shutdown.
//
// Server binds its listener before serving, so address errors surface from Run
// immediately. Run blocks until the context is canceled or SIGINT/SIGTERM
// arrives, then drains in-flight requests and runs the closers registered with
// WithCloser in reverse order: the connection pool, the Redis client, the
// in-memory store janitor.
//
// LivenessHandler and ReadinessHandler serve the /health/live and /health/ready
// probes. Readiness runs each named Check (pg.Healthcheck, redis.Healthcheck)
// with the request context.
//
// # Usage
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithCloser("postgres", func(context.Context) error { pool.Close(); return nil }),
//	)
//
//	r := chi.NewRouter()
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log, time.Second,
//		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//	))
//
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// # Errors
//
// Run wraps listen and serve errors with ErrStart, and Shutdown wraps failures of
// http.Server.Shutdown or any closer with ErrShutdown.
package httpserver
