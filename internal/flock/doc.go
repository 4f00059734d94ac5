// Package flock provides cross-platform advisory file locks for the
// file-backed project store.
//
// Usage:
//
//	lock, err := flock.Acquire(ctx, filepath.Join(dir, ".lock"), 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = flock.Release(lock) }()
package flock
