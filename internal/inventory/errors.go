package inventory

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for connectivity failures.
const (
	ErrCodeConnectivity        = "CONNECTIVITY"
	ErrCodeConnectivityTimeout = "CONNECTIVITY_TIMEOUT"
)

// ConnectivityError reports a failed connection or inventory query.
type ConnectivityError struct {
	// Target is the redacted connection string or data source.
	Target string
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrCodeConnectivity, e.Op, e.Target, e.Err)
}

// Unwrap returns the driver error.
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ConnectivityTimeoutError reports a connectivity check that did not finish
// within its own timeout.
type ConnectivityTimeoutError struct {
	Target  string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *ConnectivityTimeoutError) Error() string {
	return fmt.Sprintf("%s: no response from %s within %s", ErrCodeConnectivityTimeout, e.Target, e.Timeout)
}

// IsConnectivityError returns true if err is, or wraps, a ConnectivityError
// or a ConnectivityTimeoutError.
func IsConnectivityError(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce) || IsConnectivityTimeoutError(err)
}

// IsConnectivityTimeoutError returns true if err is, or wraps, a
// ConnectivityTimeoutError.
func IsConnectivityTimeoutError(err error) bool {
	var te *ConnectivityTimeoutError
	return errors.As(err, &te)
}
