package subscription

import "errors"

var (
	ErrSubscriptionNotFound      = errors.New("subscription.errors.not_found")
	ErrSubscriptionAlreadyExists = errors.New("subscription.errors.already_exists")
	ErrUnknownTier               = errors.New("subscription.errors.unknown_tier")
	ErrInvalidStatus             = errors.New("subscription.errors.invalid_status")
	ErrInvalidUpgrade            = errors.New("subscription.errors.invalid_upgrade")
	ErrInvalidUserID             = errors.New("subscription.errors.invalid_user_id")

	// ErrStoreFailure wraps persistence failures other than not-found and conflicts.
	ErrStoreFailure = errors.New("subscription.errors.store_failure")
)
