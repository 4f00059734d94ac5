package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrMockNetwork", ErrMockNetwork, "network connection reset"},
		{"ErrMockRateLimit", ErrMockRateLimit, "rate limit exceeded"},
		{"ErrMockAuthFailed", ErrMockAuthFailed, "authentication failed"},
		{"ErrMockInvalidKey", ErrMockInvalidKey, "invalid api key"},
		{"ErrMockParseJSON", ErrMockParseJSON, "failed to parse json"},
		{"ErrMockBackendDown", ErrMockBackendDown, "backend down"},
		{"ErrMockDiskFull", ErrMockDiskFull, "disk full"},
		{"ErrMockStepFailed", ErrMockStepFailed, "step failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestMockErrorsAreSentinelErrors(t *testing.T) {
	wrapped := fmt.Errorf("write index.html: %w", ErrMockDiskFull)
	assert.ErrorIs(t, wrapped, ErrMockDiskFull)
	assert.NotErrorIs(t, wrapped, ErrMockNetwork)

	// A different error with the same text is not the sentinel.
	assert.NotErrorIs(t, errors.New("disk full"), ErrMockDiskFull) //nolint:err113 // comparing against an ad hoc error
}
