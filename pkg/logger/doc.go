// Package logger builds the *slog.Logger used across featuregate.
//
// New creates a JSON or text handler from a set of options and, when context
// extractors are registered, wraps it so every record also carries values taken
// from the record's context (request id, user id).
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "featuregate"),
//	    logger.WithContextExtractors(extractors...),
//	)
//	logger.SetAsDefault(log)
//
// WithEnvironment selects a profile: development logs text at debug level,
// staging and production log JSON at info level. Options applied after it win.
//
// Attribute helpers (Error, UserID, RequestID, Feature, Tier, Outcome, Component)
// keep key names consistent between packages. Error and Errors return an empty
// attribute for nil errors, so they can be passed unconditionally:
//
//	log.ErrorContext(ctx, "usage store failed", logger.Feature(f), logger.Error(err))
package logger
