// Package testutil provides testing utilities for gamesmith.
//
// This package contains mock errors shared across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
// Their messages matter: the text generator classifies retries by message.
var (
	// ErrMockNetwork is a transient network failure.
	ErrMockNetwork = errors.New("network connection reset")

	// ErrMockRateLimit is a transient provider throttle.
	ErrMockRateLimit = errors.New("rate limit exceeded")

	// ErrMockAuthFailed is a permanent provider authentication failure.
	ErrMockAuthFailed = errors.New("authentication failed")

	// ErrMockInvalidKey is a permanent bad API key failure.
	ErrMockInvalidKey = errors.New("invalid api key")

	// ErrMockParseJSON is a permanent response decoding failure.
	ErrMockParseJSON = errors.New("failed to parse json")

	// ErrMockBackendDown is a text generator backend outage.
	ErrMockBackendDown = errors.New("backend down")

	// ErrMockDiskFull is an artifact write failure.
	ErrMockDiskFull = errors.New("disk full")

	// ErrMockStepFailed is a work plan step executor failure.
	ErrMockStepFailed = errors.New("step failed")
)
