// Package errors provides tests for the error handling package.
package errors

import (
	"errors"
	"testing"
)

func TestErrorCreation(t *testing.T) {
	err := New(ErrConfig, "bad REDIS_URL")
	if err.Code != ErrConfig {
		t.Errorf("Expected code %s, got %s", ErrConfig, err.Code)
	}
	if err.Message != "bad REDIS_URL" {
		t.Errorf("Expected message 'bad REDIS_URL', got '%s'", err.Message)
	}
}

func TestErrorWithDetails(t *testing.T) {
	err := New(ErrDecode, "malformed log topic").WithDetails("expected 3 topics, got 1")
	if err.Details != "expected 3 topics, got 1" {
		t.Errorf("Expected details 'expected 3 topics, got 1', got '%s'", err.Details)
	}
}

func TestErrorWithSuggestion(t *testing.T) {
	err := New(ErrNetworkTimeout, "rpc call timed out").WithSuggestion("check endpoint latency")
	if err.Suggestion != "check endpoint latency" {
		t.Errorf("Expected suggestion 'check endpoint latency', got '%s'", err.Suggestion)
	}
}

func TestWrapError(t *testing.T) {
	originalErr := errors.New("dial tcp: connection refused")
	err := Wrap(originalErr, ErrRPCFailure, "eth_blockNumber failed")
	if err.Code != ErrRPCFailure {
		t.Errorf("Expected code %s, got %s", ErrRPCFailure, err.Code)
	}
	if err.Details != "dial tcp: connection refused" {
		t.Errorf("Expected details 'dial tcp: connection refused', got '%s'", err.Details)
	}
}

func TestConfigError(t *testing.T) {
	err := ConfigError("POLL_INTERVAL_SECS", "not a number")
	if err.Code != ErrConfig {
		t.Errorf("Expected code %s, got %s", ErrConfig, err.Code)
	}
	if err.Suggestion == "" {
		t.Error("Expected suggestion to be set")
	}
}

func TestMissingRequiredFieldError(t *testing.T) {
	err := MissingRequiredFieldError("ETH_RPC_URL")
	if err.Code != ErrMissingRequiredField {
		t.Errorf("Expected code %s, got %s", ErrMissingRequiredField, err.Code)
	}
	if err.Suggestion == "" {
		t.Error("Expected suggestion to be set")
	}
}

func TestInvalidAddressError(t *testing.T) {
	err := InvalidAddressError("not-an-address", "ethereum")
	if err.Code != ErrInvalidAddress {
		t.Errorf("Expected code %s, got %s", ErrInvalidAddress, err.Code)
	}
}

func TestPublishError(t *testing.T) {
	originalErr := errors.New("connection refused")
	err := PublishError("cross_chain_events", originalErr)
	if err.Code != ErrPublish {
		t.Errorf("Expected code %s, got %s", ErrPublish, err.Code)
	}
}
