package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/featuregate/pkg/config"
	"github.com/dmitrymomot/featuregate/pkg/httpapi"
	"github.com/dmitrymomot/featuregate/pkg/httpserver"
	"github.com/dmitrymomot/featuregate/pkg/logger"
	"github.com/dmitrymomot/featuregate/pkg/pg"
	"github.com/dmitrymomot/featuregate/pkg/quota"
	"github.com/dmitrymomot/featuregate/pkg/redis"
	"github.com/dmitrymomot/featuregate/pkg/subscription"
	"github.com/dmitrymomot/featuregate/pkg/tier"
	"github.com/dmitrymomot/featuregate/pkg/usage"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("featuregate stopped", logger.Error(err))
		os.Exit(1)
	}
}

// backends holds the connections the selected stores need.
type backends struct {
	pool  *pgxpool.Pool
	db    *sql.DB
	redis *goredis.Client
}

func run(ctx context.Context) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.Parse[config.Service]()
	if err != nil {
		return err
	}
	serverCfg, err := config.Parse[httpserver.Config]()
	if err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, cfg.AppName),
		logger.WithContextExtractors(httpapi.LoggerExtractors()...),
	}
	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logOpts = append(logOpts, logger.WithLevel(level))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	loc, err := usage.LoadLocation(cfg.UsageTimezone)
	if err != nil {
		return err
	}
	clock := usage.NewClock(loc)

	catalog := tier.Default()
	if cfg.CatalogPath != "" {
		if catalog, err = tier.Load(ctx, tier.NewYAMLSource(cfg.CatalogPath)); err != nil {
			return err
		}
	}
	log.InfoContext(ctx, "tier catalog loaded",
		slog.Int("tiers", len(catalog.Tiers())),
		slog.String("timezone", loc.String()),
	)

	b, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}

	serverOpts := []httpserver.Option{httpserver.WithLogger(log.With(logger.Component("httpserver")))}
	var checks []httpserver.Check
	if b.pool != nil {
		checks = append(checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(b.pool)})
		serverOpts = append(serverOpts,
			httpserver.WithCloser("postgres", func(context.Context) error {
				// The sql.DB shares the pool, so the pool is closed after it.
				err := b.db.Close()
				b.pool.Close()
				return err
			}),
		)
	}
	if b.redis != nil {
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(b.redis)})
		serverOpts = append(serverOpts,
			httpserver.WithCloser("redis", func(context.Context) error { return b.redis.Close() }),
		)
	}

	var usageStore usage.Store
	switch cfg.UsageStore {
	case config.StoreRedis:
		usageStore = usage.NewRedisStore(b.redis,
			usage.WithKeyPrefix(cfg.RedisUsagePrefix),
			usage.WithKeyRetention(cfg.RedisUsageRetention),
		)
	case config.StorePostgres:
		usageStore = usage.NewPostgresStore(b.db)
	default:
		mem := usage.NewMemoryStore(usage.WithRetention(48*time.Hour, time.Hour))
		serverOpts = append(serverOpts, httpserver.WithCloser("usage memory store", func(context.Context) error {
			mem.Close()
			return nil
		}))
		usageStore = mem
	}

	var subStore subscription.Store
	if cfg.SubscriptionStore == config.StorePostgres {
		subStore = subscription.NewPostgresStore(b.db)
	} else {
		subStore = subscription.NewMemoryStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	limiter := quota.NewLimiter(catalog, subscription.NewResolver(catalog, subStore), usageStore,
		quota.WithClock(clock),
		quota.WithStoreTimeout(cfg.StoreTimeout),
		quota.WithLogger(log.With(logger.Component("quota"))),
		quota.WithMetrics(quota.NewMetrics(registry)),
	)
	manager := subscription.NewManager(catalog, subStore,
		subscription.WithManagerLogger(log.With(logger.Component("subscription"))),
	)
	api := httpapi.New(quota.NewService(limiter), manager, httpapi.WithLogger(log.With(logger.Component("httpapi"))))

	opts := httpapi.RouterOptions{
		API:    api,
		UserID: quota.HeaderUserID(cfg.UserIDHeader),
		Logger: log.With(logger.Component("access")),
		Live:   httpserver.LivenessHandler(),
		Ready:  httpserver.ReadinessHandler(log, cfg.StoreTimeout, checks...),
	}
	if cfg.MetricsEnabled {
		opts.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	return httpserver.NewFromConfig(serverCfg, serverOpts...).Run(ctx, httpapi.Router(opts))
}

// connect opens the backends the selected stores need, concurrently.
func connect(ctx context.Context, cfg config.Service, log *slog.Logger) (*backends, error) {
	b := &backends{}
	g, gctx := errgroup.WithContext(ctx)

	if cfg.NeedsPostgres() {
		g.Go(func() error {
			pgCfg, err := config.Parse[pg.Config]()
			if err != nil {
				return err
			}
			pool, err := pg.Connect(gctx, pgCfg)
			if err != nil {
				return err
			}
			db := pg.OpenDB(pool)
			if pgCfg.AutoMigrate {
				if err := pg.Migrate(gctx, db, pgCfg, log.With(logger.Component("migrations"))); err != nil {
					_ = db.Close()
					pool.Close()
					return err
				}
			}
			b.pool, b.db = pool, db
			return nil
		})
	}

	if cfg.NeedsRedis() {
		g.Go(func() error {
			redisCfg, err := config.Parse[redis.Config]()
			if err != nil {
				return err
			}
			client, err := redis.Connect(gctx, redisCfg)
			if err != nil {
				return err
			}
			b.redis = client
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Join(b.close(), err)
	}
	return b, nil
}

func (b *backends) close() error {
	var errs []error
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	return errors.Join(errs...)
}
