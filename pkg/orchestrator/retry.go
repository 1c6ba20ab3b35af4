package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrRetriesExceeded = errors.New("could not get a successful result within the allotted attempts")
)

// Poll runs fn up to attempts times with a fixed delay between attempts,
// stopping as soon as fn reports success. Errors from fn do not abort the
// loop; the last one is carried into the exhaustion error. Cancelling the
// context stops further attempts immediately.
func Poll(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) (bool, error)) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		ok, err := fn(ctx)
		if err != nil {
			lastErr = err

			continue
		}
		if ok {
			return nil
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: last error: %v", ErrRetriesExceeded, lastErr)
	}

	return ErrRetriesExceeded
}
