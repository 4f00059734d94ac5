package errors

import "fmt"

// Wrap adds context to errors at package boundaries.
// It returns nil if err is nil, allowing for safe inline usage.
//
// The wrapped error preserves the original error chain, so sentinel
// checks keep working:
//
//	if err := store.Write(ctx, path, data); err != nil {
//	    return errors.Wrap(err, "failed to write config")
//	}
//
//	if errors.Is(err, errors.ErrPathTraversal) {
//	    // reject the request
//	}
//
// Only wrap at package boundaries to avoid deeply nested messages.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context to errors at package boundaries.
// It returns nil if err is nil.
//
//	return errors.Wrapf(err, "failed to load template %s", id)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
