package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// retryInterval is the pause between lock attempts.
const retryInterval = 50 * time.Millisecond

// Acquire opens (creating if needed) the lock file at path and polls for an
// exclusive lock until timeout elapses or ctx is done.
// Returns ErrLockTimeout when the lock stays held by someone else.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //#nosec G304 -- path is built by the caller from validated ids
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}

		if err := Exclusive(f.Fd()); err == nil {
			return f, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock %s: %w", filepath.Base(path), gserrors.ErrLockTimeout)
		}

		time.Sleep(retryInterval)
	}
}

// Release unlocks and closes a file returned by Acquire. A nil file is a no-op.
func Release(f *os.File) error {
	if f == nil {
		return nil
	}
	if err := Unlock(f.Fd()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return f.Close()
}
