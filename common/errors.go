// Package common provides shared constants, types, and utilities
// used across the vpndial application.
package common

import "errors"

// Sentinel errors for registry and connection operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Connection errors.
	ErrConnectionBusy = errors.New("a connection attempt is already in flight")
	ErrNotConnected   = errors.New("no active connection")
	ErrDialFailed     = errors.New("dial failed")
	ErrTimeout        = errors.New("operation timed out")

	// Profile errors.
	ErrInvalidProfile  = errors.New("invalid profile data")
	ErrProfileNotFound = errors.New("profile not found")
	ErrDuplicateID     = errors.New("profile id already registered")

	// Transport errors.
	ErrDriverUnavailable = errors.New("no vpn transport tool found")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
