// Package redis connects featuregate to a Redis server.
//
// Connect retries until the server answers a ping, and Healthcheck turns a
// client into a readiness probe. The resulting client is handed to
// usage.NewRedisStore, which keeps daily counters in per-user hashes.
//
// Configuration is described by Config, populated from environment variables via
// github.com/caarlos0/env:
//
//	cfg, err := config.Parse[redis.Config]()
//	if err != nil {
//		return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := usage.NewRedisStore(client, usage.WithKeyPrefix("featuregate:usage"))
package redis
