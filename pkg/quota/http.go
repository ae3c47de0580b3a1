package quota

import (
	"encoding/json"
	"errors"
	"net/http"
)

// StatusCode maps a decision error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTierRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnknownFeature):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingUserID):
		return http.StatusUnauthorized
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKey returns the stable error key sent to clients.
// Unclassified errors are reported as "quota.errors.internal" so details never leak.
func ErrorKey(err error) string {
	for _, sentinel := range []error{
		ErrTierRequired,
		ErrQuotaExceeded,
		ErrUnknownFeature,
		ErrInvalidAmount,
		ErrMissingUserID,
		ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "quota.errors.internal"
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as {"error": key} with the status from StatusCode.
// Locked features and exhausted quotas also carry their descriptive headers.
func WriteError(w http.ResponseWriter, err error) {
	var tierErr *TierRequiredError
	if errors.As(err, &tierErr) {
		for k, v := range AccessHeaders(&Access{
			Feature:      tierErr.Feature,
			CurrentTier:  tierErr.CurrentTier,
			RequiredTier: tierErr.RequiredTier,
		}) {
			w.Header()[k] = v
		}
	}
	WriteJSON(w, StatusCode(err), ErrorResponse{Error: ErrorKey(err)})
}
