// Package ctxutil provides context utility functions.
package ctxutil

import "context"

// Canceled returns the context error if ctx is done, nil otherwise.
// Used at the entry of blocking store and stage operations.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

// Detach returns a context that keeps the values of parent (logger, request ids)
// but is never canceled by it. Agent runs outlive the request that started them.
func Detach(parent context.Context) context.Context {
	if parent == nil {
		return context.Background()
	}
	return context.WithoutCancel(parent)
}
