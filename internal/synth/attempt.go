package synth

import "context"

// Attempt runs fn until it succeeds, fails with a non-retryable kind, the
// context ends or maxAttempts runs were made. It returns the number of runs
// and the last failure (nil on success).
func Attempt(ctx context.Context, maxAttempts int, fn func(ctx context.Context, attempt int) *Failure) (int, *Failure) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var last *Failure
	for i := 1; i <= maxAttempts; i++ {
		last = fn(ctx, i)
		if last == nil {
			return i, nil
		}
		if !last.Kind.Retryable() || ctx.Err() != nil {
			return i, last
		}
	}
	return maxAttempts, last
}
