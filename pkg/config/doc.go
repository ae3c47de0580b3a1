// Package config loads configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
//
//   - LoadEnv reads one or more `.env` files into the process environment
//     (the default `.env` in the working directory is optional).
//   - Parse and Load populate any struct annotated with `env` tags and run its
//     Validate method when the struct implements Validator.
//   - MustLoad panics on failure for configuration the process cannot start without.
//
// Service holds the featuregate process settings: environment, usage timezone,
// tier catalog location and the selected storage backends. Backend packages own
// their settings (pg.Config, redis.Config, httpserver.Config), so a process that
// runs entirely in memory never needs a database URL.
//
// # Usage
//
//	import "github.com/dmitrymomot/featuregate/pkg/config"
//
//	func main() {
//	    svc, err := config.Load[config.Service]()
//	    if err != nil {
//	        log.Fatalf("config: %v", err)
//	    }
//	    if svc.NeedsPostgres() {
//	        pgCfg, err := config.Parse[pg.Config]()
//	        // ...
//	    }
//	}
//
// # Error Handling
//
// The package defines sentinel errors that can be compared with `errors.Is`:
//
//   - `ErrParsingConfig`  – env vars could not be parsed into the struct.
//   - `ErrInvalidConfig`  – parsed values failed validation.
//   - `ErrLoadingEnvFile` – an explicitly requested .env file could not be read.
package config
