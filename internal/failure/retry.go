package failure

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry tunables. The exact curve is not a correctness requirement; start at
// half a second, double each attempt, give up after MaxAttempts.
var (
	MaxAttempts uint64 = 5
	BaseBackoff        = 500 * time.Millisecond
)

// Retry runs fn, retrying with exponential backoff only while the failure
// classifies as Transient. Non-transient failures abort immediately. The
// returned Record is nil on success and carries the attempt count otherwise.
func Retry(ctx context.Context, component string, fn func(context.Context) error) *Record {
	attempts := 0

	backoff := retry.WithMaxRetries(MaxAttempts-1, retry.NewExponential(BaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if Classify(component, err).Kind == Transient {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	rec := Classify(component, err)
	rec.Attempts = attempts
	return rec
}
