package db

import "context"

// RetryTransient runs fn and, if it fails with a transient store error, runs
// it exactly once more. Business errors are returned untouched.
func RetryTransient(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !IsTransient(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return err
	}
	return fn(ctx)
}
