// Package poll waits for an asynchronously-changing resource to reach a
// target state by repeatedly fetching it and testing a predicate.
package poll

import (
	"context"
	"fmt"
	"time"
)

const defaultInterval = 1 * time.Second

// Config holds poll loop settings.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// Option is a functional option for the poll loop.
type Option func(*Config)

// WithInterval sets the pause between fetches. Defaults to one second.
func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		c.Interval = d
	}
}

// WithMaxAttempts bounds the number of fetches. Zero means no bound; the
// loop then runs until the predicate holds or ctx is done, so callers
// should pass a context with a deadline.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// Until fetches a resource until done reports true for it, sleeping between
// fetches. The first resource satisfying done is returned. Fetch errors abort
// immediately; cancellation of ctx aborts between fetches.
func Until[T any](ctx context.Context, fetch func(ctx context.Context) (T, error), done func(T) bool, opts ...Option) (T, error) {
	cfg := &Config{Interval: defaultInterval}
	for _, opt := range opts {
		opt(cfg)
	}

	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("polling canceled: %w", err)
		}

		resource, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		if done(resource) {
			return resource, nil
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return zero, fmt.Errorf("resource did not reach target state after %d attempts", attempt)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("polling canceled: %w", ctx.Err())
		case <-time.After(cfg.Interval):
		}
	}
}
