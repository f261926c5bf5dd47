package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	MaxAttempts int
	// AttemptTimeout bounds each call; zero leaves it to the caller's context.
	AttemptTimeout time.Duration
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	// Deadline caps the total time spent across all attempts.
	Deadline time.Duration
}

// StartupPolicy is used when dialing PostgreSQL and Redis on boot, when the
// stores may still be starting alongside the service.
func StartupPolicy() Policy {
	return Policy{
		MaxAttempts:    10,
		AttemptTimeout: 5 * time.Second,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		Deadline:       time.Minute,
	}
}

func (p Policy) next(delay time.Duration) time.Duration {
	if p.Multiplier > 1 {
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do calls fn until it succeeds, attempts run out or ctx ends. The returned
// error wraps both the last failure and, when relevant, the context error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return Dial(ctx, p, "operation", nil, fn)
}

// Dial is Do for connecting to a named dependency. Each failed attempt is
// logged as a warning when logger is not nil.
func Dial(ctx context.Context, p Policy, target string, logger *zerolog.Logger, fn func(ctx context.Context) error) error {
	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	delay := p.InitialDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			return fmt.Errorf("%s: gave up after %d attempts: %w", target, attempt-1, fmt.Errorf("%w (last error: %w)", err, lastErr))
		}

		lastErr = call(ctx, p.AttemptTimeout, fn)
		if lastErr == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("%s: unreachable after %d attempts: %w", target, attempt, lastErr)
		}

		if logger != nil {
			logger.Warn().Err(lastErr).
				Str("target", target).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Connection attempt failed")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		delay = p.next(delay)
	}
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
