// Package retry provides bounded retry of operations with a fixed delay.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how often an operation is attempted.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the pause between attempts. Zero means retry immediately;
	// operations that block on their own timeout (e.g. a dial with a
	// connection timeout) typically want zero here.
	Delay time.Duration
}

// Do runs op until it succeeds, the policy is exhausted, or ctx is done.
// The last error is returned wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled after %d attempts: %w", attempt-1, err)
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}

		if attempt < attempts && p.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("canceled after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(p.Delay):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
