package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/featuregate/pkg/quota"
	"github.com/dmitrymomot/featuregate/pkg/subscription"
)

var (
	ErrInvalidQuery = errors.New("httpapi.errors.invalid_query")
	ErrNotFound     = errors.New("httpapi.errors.not_found")
)

var subscriptionErrors = []struct {
	err    error
	status int
}{
	{subscription.ErrSubscriptionNotFound, http.StatusNotFound},
	{subscription.ErrSubscriptionAlreadyExists, http.StatusConflict},
	{subscription.ErrUnknownTier, http.StatusBadRequest},
	{subscription.ErrInvalidStatus, http.StatusBadRequest},
	{subscription.ErrInvalidUpgrade, http.StatusBadRequest},
	{subscription.ErrInvalidUserID, http.StatusBadRequest},
	{subscription.ErrStoreFailure, http.StatusServiceUnavailable},
	{ErrInvalidQuery, http.StatusBadRequest},
	{ErrNotFound, http.StatusNotFound},
}

// statusCode returns the response status writeError uses for err.
func statusCode(err error) int {
	for _, e := range subscriptionErrors {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return quota.StatusCode(err)
}

// writeError renders err as {"error": key}. Quota errors keep their own mapping and headers.
func writeError(w http.ResponseWriter, err error) {
	for _, e := range subscriptionErrors {
		if errors.Is(err, e.err) {
			quota.WriteJSON(w, e.status, quota.ErrorResponse{Error: e.err.Error()})
			return
		}
	}
	quota.WriteError(w, err)
}
