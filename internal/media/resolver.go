package media

import (
	"context"
	"fmt"
	"time"
)

// Fetcher retrieves an uploaded image payload by id.
type Fetcher interface {
	FetchImage(ctx context.Context, id string) (string, error)
}

const (
	// resolveAttempts bounds the retry loop; there is no wall-clock cap.
	resolveAttempts = 5
	resolveBackoff  = time.Second
)

// Resolver fetches deferred images with bounded retries: up to 5 attempts
// with a backoff starting at one second and doubling each attempt.
type Resolver struct {
	fetcher  Fetcher
	attempts int
	backoff  time.Duration

	// sleep is overridable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver builds a resolver with the standard retry policy.
func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		attempts: resolveAttempts,
		backoff:  resolveBackoff,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// Resolve returns the image payload for id, or the last error once the
// attempts are exhausted. The context is honored at every retry boundary, so
// a cancelled owner stops the loop instead of leaking it.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	var lastErr error
	delay := r.backoff
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
			delay *= 2
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		payload, err := r.fetcher.FetchImage(ctx, id)
		if err == nil {
			return payload, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("media: image %q unresolved after %d attempts: %w", id, r.attempts, lastErr)
}
