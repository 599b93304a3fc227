// Package poll provides an exponential-backoff wait-until-condition
// utility with external cancellation.
package poll

import (
	"context"
	"time"
)

// Outcome classifies how a poll ended.
type Outcome string

const (
	// OutcomeSucceeded means the check returned true.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeTimedOut means the attempt budget ran out.
	OutcomeTimedOut Outcome = "timed-out"
	// OutcomeCancelled means the context was cancelled; the pending
	// sleep is aborted immediately and this is reported distinctly
	// from a timeout.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeError means the check returned a terminal error.
	OutcomeError Outcome = "error"
)

// Config controls the backoff schedule. Timeouts are expressed only
// through MaxAttempts and the delay bounds; there is no wall clock.
type Config struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxAttempts  int
}

// Default returns a schedule suitable for awaiting CI or merge
// completion: 2s doubling to a 60s cap, 30 attempts.
func Default() Config {
	return Config{
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		MaxDelay:     60 * time.Second,
		MaxAttempts:  30,
	}
}

func (c Config) withDefaults() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	return c
}

// Result reports how a poll ended and how much work it did.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// CheckFunc reports whether the awaited condition holds. Returning a
// non-nil error ends the poll immediately with OutcomeError.
type CheckFunc func(ctx context.Context) (bool, error)

// Until runs check on the backoff schedule until it returns true, the
// attempt budget is exhausted, or ctx is cancelled. Cancellation is
// checked on every iteration and aborts the pending sleep.
func Until(ctx context.Context, cfg Config, check CheckFunc) Result {
	cfg = cfg.withDefaults()
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Outcome: OutcomeCancelled, Attempts: attempt - 1, Err: err}
		}

		ok, err := check(ctx)
		if err != nil {
			return Result{Outcome: OutcomeError, Attempts: attempt, Err: err}
		}
		if ok {
			return Result{Outcome: OutcomeSucceeded, Attempts: attempt}
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Outcome: OutcomeCancelled, Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return Result{Outcome: OutcomeTimedOut, Attempts: cfg.MaxAttempts}
}
