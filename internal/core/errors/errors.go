package errors

import "errors"

var (
	// ErrDuplicateSubscription is returned when a subscription ID is already active.
	ErrDuplicateSubscription = errors.New("subscription already active")
	// ErrUnknownSubscription is returned when cancelling an ID that is not active.
	ErrUnknownSubscription = errors.New("unknown subscription")
	// ErrInvalidSubscription is returned for unknown types or negative thresholds.
	ErrInvalidSubscription = errors.New("invalid subscription")
	// ErrMalformedMessage marks server or client bytes that cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrTransportUnavailable is returned when a send fails after all retries.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrEngineStopped is returned by engine calls after shutdown.
	ErrEngineStopped = errors.New("engine stopped")
)

const (
	HttpInternalError              = "internal_error"
	HttpInvalidJsonError           = "invalid_json"
	HttpInvalidEventError          = "invalid_event"
	HttpInvalidSubscriptionError   = "invalid_subscription"
	HttpDuplicateSubscriptionError = "duplicate_subscription"
	HttpUnknownSubscriptionError   = "unknown_subscription"
	HttpServiceUnavailableError    = "service_unavailable"
)

// ErrorResponse is the error body returned by the admin API.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
