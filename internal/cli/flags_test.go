package cli

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/gamesmith/internal/errors"
)

func TestIsValidOutputFormat(t *testing.T) {
	assert.True(t, IsValidOutputFormat(OutputText))
	assert.True(t, IsValidOutputFormat(OutputJSON))
	assert.False(t, IsValidOutputFormat("yaml"))
	assert.False(t, IsValidOutputFormat(""))
	assert.Equal(t, []string{"text", "json"}, ValidOutputFormats())
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"bad output", fmt.Errorf("x: %w", errors.ErrInvalidOutputFormat), ExitInvalidInput},
		{"empty value", fmt.Errorf("instruction %w", errors.ErrEmptyValue), ExitInvalidInput},
		{"bad config", errors.Wrap(errors.ErrConfigInvalid, "server.addr"), ExitInvalidInput},
		{"run failed", errors.Wrap(errors.ErrRunFailed, "boom"), ExitError},
		{"canceled", context.Canceled, ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}
