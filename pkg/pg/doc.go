// Package pg connects featuregate to PostgreSQL through the pgx/v5 driver.
//
// It covers the pieces a service needs before the Postgres-backed stores in
// usage and subscription can run:
//
//   - Config is populated from environment variables and controls pool limits,
//     retries and the migrations table.
//   - Connect opens a *pgxpool.Pool and retries until the database answers a ping.
//   - OpenDB exposes the pool as a *sql.DB for the stores and goose.
//   - Migrate applies the embedded schema (user_subscriptions, feature_usage,
//     subscription_events).
//   - Healthcheck returns a readiness probe.
//
// # Usage
//
//	cfg, err := config.Parse[pg.Config]()
//	if err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	db := pg.OpenDB(pool)
//	if cfg.AutoMigrate {
//		if err := pg.Migrate(ctx, db, cfg, log); err != nil {
//			return err
//		}
//	}
//
//	store := subscription.NewPostgresStore(db)
//
// # Error Handling
//
// IsDuplicateKeyError and IsSerializationError unwrap *pgconn.PgError so store
// code can classify failures without string matching.
package pg
