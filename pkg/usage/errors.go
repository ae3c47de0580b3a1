package usage

import "errors"

var (
	ErrInvalidAmount = errors.New("usage.errors.invalid_amount")
	ErrInvalidLimit  = errors.New("usage.errors.invalid_limit")
	ErrInvalidKey    = errors.New("usage.errors.invalid_key")

	// ErrStoreUnavailable wraps every backend I/O failure.
	ErrStoreUnavailable = errors.New("usage.errors.store_unavailable")
)
