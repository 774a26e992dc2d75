package middleware

import (
	"errors"
	"fmt"
)

// Request error sentinels, matched by WriteError's status mapping.
var (
	// ErrAuthentication indicates authentication failure.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation indicates a malformed or invalid request.
	ErrValidation = errors.New("validation failed")
)

// ValidationError is a request validation failure with a caller-facing
// message.
type ValidationError struct {
	message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.message)
}

// Message returns the caller-facing message.
func (e *ValidationError) Message() string { return e.message }

// Unwrap returns the base validation error for errors.Is compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthenticationError represents an authentication failure.
type AuthenticationError struct {
	message string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{message: message}
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.message)
}

// Unwrap returns the base authentication error for errors.Is compatibility.
func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }
