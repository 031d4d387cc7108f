// Package errors provides standardized error handling for the cross-chain watcher.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type with a unique code.
type ErrorCode string

// Error categories.
const (
	// Configuration errors, fatal at startup.
	ErrConfig               ErrorCode = "CONFIG_ERROR"
	ErrInvalidParameter     ErrorCode = "INVALID_PARAMETER"
	ErrMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrInvalidAddress       ErrorCode = "INVALID_ADDRESS"

	// Transient RPC errors, logged and retried/reconnected by the caller.
	ErrNetworkConnection ErrorCode = "NETWORK_CONNECTION_ERROR"
	ErrNetworkTimeout    ErrorCode = "NETWORK_TIMEOUT"
	ErrRPCFailure        ErrorCode = "RPC_FAILURE"

	// Semantic decode errors, logged and the record skipped.
	ErrDecode ErrorCode = "DECODE_ERROR"

	// Publisher errors, retried with backoff then dropped.
	ErrPublish ErrorCode = "PUBLISH_ERROR"

	// Catch-all.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is a standardized error with code, message, details and suggestion.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to the error.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", message, err),
		Details: err.Error(),
	}
}

// ConfigError creates a fatal configuration error for a specific key.
func ConfigError(key, reason string) *Error {
	return New(ErrConfig, fmt.Sprintf("invalid configuration for %q", key)).
		WithDetails(reason).
		WithSuggestion(fmt.Sprintf("set %s to a valid value", key))
}

// MissingRequiredFieldError creates a missing required configuration key error.
func MissingRequiredFieldError(key string) *Error {
	return New(ErrMissingRequiredField, fmt.Sprintf("missing required configuration key %q", key)).
		WithSuggestion(fmt.Sprintf("set %s in the environment or the fallback .env file", key))
}

// InvalidAddressError creates an error for an unparseable watched address.
func InvalidAddressError(address, chain string) *Error {
	return New(ErrInvalidAddress, fmt.Sprintf("invalid watched address %q for chain %q", address, chain)).
		WithSuggestion("check the address format for the target chain")
}

// NetworkError creates a transient network/connection error.
func NetworkError(operation string, err error) *Error {
	return Wrap(err, ErrNetworkConnection, fmt.Sprintf("connection failed during %s", operation)).
		WithSuggestion("will retry after the configured cooldown")
}

// TimeoutError creates a transient timeout error.
func TimeoutError(operation string) *Error {
	return New(ErrNetworkTimeout, fmt.Sprintf("timeout during %s", operation)).
		WithSuggestion("will retry after the configured cooldown")
}

// RPCError creates an error for a failed chain RPC call.
func RPCError(method string, err error) *Error {
	return Wrap(err, ErrRPCFailure, fmt.Sprintf("RPC call failed for method %q", method)).
		WithSuggestion("check RPC endpoint availability")
}

// DecodeError creates an error for a malformed on-chain record.
func DecodeError(what string, err error) *Error {
	return Wrap(err, ErrDecode, fmt.Sprintf("failed to decode %s", what))
}

// PublishError creates an error for an exhausted publish retry budget.
func PublishError(topic string, err error) *Error {
	return Wrap(err, ErrPublish, fmt.Sprintf("failed to publish to topic %q", topic))
}

// InternalError wraps an unexpected internal error.
func InternalError(operation string, err error) *Error {
	return Wrap(err, ErrInternal, fmt.Sprintf("internal error during %s", operation))
}
