package tier

import "errors"

var (
	// ErrInvalidCatalog is the configuration error returned when a catalog fails validation.
	ErrInvalidCatalog = errors.New("tier.errors.invalid_catalog")

	ErrFailedToLoadCatalog = errors.New("tier.errors.failed_to_load_catalog")

	// ErrUnknownTier marks a tier name the catalog does not define.
	ErrUnknownTier = errors.New("tier.errors.unknown_tier")
)
