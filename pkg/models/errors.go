package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleWrite marks a refresh result that completed after a newer one
	// was applied. It is counted and dropped, never returned to callers.
	ErrStaleWrite      = errors.New("stale write ignored")
	ErrSessionNotFound = errors.New("chat session not found")
)

// ServiceError is any failed call to the remote catalog/order service.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: service returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
