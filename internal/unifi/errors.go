package unifi

import "fmt"

// AuthError signals a rejected login or an expired session. The collector
// re-authenticates once before treating it as fatal for the cycle.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth error: " + e.Reason }

// AuthFailure marks the error for interface-based classification without
// importing this package.
func (e *AuthError) AuthFailure() bool { return true }

// TransientError wraps a network-level failure worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string     { return e.Err.Error() }
func (e *TransientError) Unwrap() error     { return e.Err }
func (e *TransientError) IsRetryable() bool { return true }

// APIError represents an unexpected HTTP status from the controller.
type APIError struct {
	StatusCode int
	Body       string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d from %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
