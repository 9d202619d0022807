package portal

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of a portal client error
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the portal address
	ErrTypeConnectionRefused
	// ErrTypeHTTP indicates an unexpected HTTP status
	ErrTypeHTTP
	// ErrTypeRejected indicates the portal refused the request (400)
	ErrTypeRejected
	// ErrTypeBusy indicates the manager's queue was full or the client was rate limited
	ErrTypeBusy
	// ErrTypeParse indicates a malformed response
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeBusy:
		return "Busy"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError is returned by every Client method.
type APIError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Details    []string
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyNetworkError maps a transport error onto an APIError.
func classifyNetworkError(message string, err error) *APIError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if os.IsTimeout(err) {
		return &APIError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &APIError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}
	return &APIError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// newStatusError builds the error for a non-2xx response.
func newStatusError(statusCode int, body ErrorResponse) *APIError {
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	e := &APIError{Type: ErrTypeHTTP, Message: msg, StatusCode: statusCode, Details: body.Details}
	switch {
	case statusCode == http.StatusBadRequest:
		e.Type = ErrTypeRejected
	case statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable:
		e.Type = ErrTypeBusy
		e.Retryable = true
	case statusCode >= 500:
		e.Retryable = true
	}
	return e
}

// IsRejected reports whether the portal rejected the request as invalid
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrTypeRejected
}

// IsBusy reports whether the portal asked the client to back off
func IsBusy(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrTypeBusy
}

// IsNetworkError reports whether the portal could not be reached
func IsNetworkError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Type == ErrTypeNetwork || apiErr.Type == ErrTypeTimeout || apiErr.Type == ErrTypeConnectionRefused
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-facing advice for an error
func GetTroubleshootingHint(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Type {
	case ErrTypeConnectionRefused, ErrTypeNetwork:
		return "Check that you are joined to the device's access point and that the portal address is correct.\n" +
			"Use 'wifiapp-cfg scan' to find portals on the local network."
	case ErrTypeTimeout:
		return "The portal did not answer in time. The device may be busy switching networks; try again shortly."
	case ErrTypeRejected:
		return "The portal rejected the request. Check the SSID (1-32 bytes) and password (at most 64 bytes)."
	case ErrTypeBusy:
		return "The device is busy handling earlier requests. Wait a moment and try again."
	case ErrTypeParse:
		return "The portal sent an unexpected response. Check that the client and device versions match."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
