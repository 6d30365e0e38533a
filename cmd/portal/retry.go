package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// retryPolicy bounds how long a command waits for a backing service.
type retryPolicy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

var (
	// serve waits out a slow docker compose start.
	startupRetry = retryPolicy{Attempts: 15, Delay: 2 * time.Second, MaxDelay: 30 * time.Second}
	// one-shot commands fail fast.
	commandRetry = retryPolicy{Attempts: 5, Delay: time.Second, MaxDelay: 5 * time.Second}
)

// waitFor calls ping until it succeeds, doubling the delay between attempts up
// to MaxDelay. A cancelled ctx stops the wait immediately.
func waitFor(ctx context.Context, name string, policy retryPolicy, log *zap.Logger, ping func(context.Context) error) error {
	var err error
	delay := policy.Delay

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == policy.Attempts {
			break
		}

		log.Warn(name+" unavailable, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", policy.Attempts),
			zap.Duration("nextRetryIn", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return fmt.Errorf("%s unavailable after %d attempts: %w", name, policy.Attempts, err)
}
