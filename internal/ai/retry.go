package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/gamesmith/internal/constants"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// backoffMultiplier grows the wait between attempts.
const backoffMultiplier = 2

// permanentError marks a backend failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent wraps err so isRetryable rejects it.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// containsAny reports whether s contains any of substrs.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// isRetryable determines whether an error should be retried.
// Context, authentication and request-shape errors are final; network
// failures, rate limits and server errors are retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	if containsAny(errStr, "authentication", "api key", "api_key", "permission denied", "unauthorized") {
		return false
	}
	if containsAny(errStr, "invalid json", "failed to parse json", "invalid_request_error") {
		return false
	}
	return true
}

// runWithRetry executes the backend call with exponential backoff.
// Only transient errors are retried; others return immediately.
// Every failure is wrapped in ErrGeneratorCallFailed.
func (g *Generator) runWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := constants.InitialBackoff
	attempts := g.maxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			g.logger.Debug().
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Msg("retrying text generation")
		}

		text, err := g.call(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", emptyResponseError(g.provider)
			}
			if attempt > 1 {
				g.logger.Info().Int("attempt", attempt).Msg("text generation succeeded after retry")
			}
			return text, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", gserrors.ErrGeneratorCallFailed, ctxErr)
		}

		if !isRetryable(err) {
			g.logger.Debug().
				Err(err).
				Int("attempt", attempt).
				Msg("text generation failed with non-retryable error")
			return "", fmt.Errorf("%w: %w", gserrors.ErrGeneratorCallFailed, err)
		}

		lastErr = err
		if attempt < attempts {
			g.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Dur("backoff", backoff).
				Msg("text generation failed, will retry after backoff")

			if sleepErr := g.clock.Sleep(ctx, backoff); sleepErr != nil {
				return "", fmt.Errorf("%w: %w", gserrors.ErrGeneratorCallFailed, sleepErr)
			}
			backoff *= backoffMultiplier
		}
	}

	g.logger.Error().
		Err(lastErr).
		Int("max_attempts", attempts).
		Msg("text generation failed after max retries")

	return "", fmt.Errorf("%w: max retries exceeded: %w", gserrors.ErrGeneratorCallFailed, lastErr)
}
