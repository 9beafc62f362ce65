package idle

import (
	"context"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// DefaultPollInterval is the delay between two idle checks.
const DefaultPollInterval = 100 * time.Millisecond

// Outcome is how a wait ended.
type Outcome int

const (
	OutcomeSkipped  Outcome = iota // Timeout was zero; no polling happened
	OutcomeSettled                 // The predicate reported idle
	OutcomeTimedOut                // The timeout expired first
	OutcomeCanceled                // The context was done first
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSettled:
		return "settled"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// IdleFunc reports whether the system under test is idle. An error counts as busy.
type IdleFunc func(ctx context.Context) (bool, error)

// Clock abstracts time so waits can be tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// WallClock returns the real clock.
func WallClock() Clock {
	return wallClock{}
}

// WaitOptions configures a single wait.
type WaitOptions struct {
	Timeout  time.Duration // 0 = skip
	Interval time.Duration // 0 = DefaultPollInterval
	Clock    Clock         // nil = wall clock
}

// WaitResult describes a finished wait.
type WaitResult struct {
	Outcome Outcome
	Polls   int
	Elapsed time.Duration
}

// Wait polls isIdle until it reports idle or the timeout expires. Each check
// runs under the remaining budget and is abandoned when that budget runs out,
// so Wait returns within the timeout plus at most one poll interval (the
// budget of a check issued exactly at the deadline). It never fails: callers
// proceed whatever the outcome.
func Wait(ctx context.Context, opts WaitOptions, isIdle IdleFunc) WaitResult {
	if opts.Timeout <= 0 {
		return WaitResult{Outcome: OutcomeSkipped}
	}

	clock := opts.Clock
	if clock == nil {
		clock = WallClock()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	start := clock.Now()
	deadline := start.Add(opts.Timeout)
	result := WaitResult{}

	for {
		if ctx.Err() != nil {
			result.Outcome = OutcomeCanceled
			break
		}

		budget := deadline.Sub(clock.Now())
		if budget <= 0 {
			budget = interval
		}

		result.Polls++
		idle, expired, err := check(ctx, budget, isIdle)
		if err == nil && idle {
			result.Outcome = OutcomeSettled
			break
		}
		if ctx.Err() != nil {
			result.Outcome = OutcomeCanceled
			break
		}
		if expired {
			logger.Debug("idle check %d outlived the wait deadline", result.Polls)
			result.Outcome = OutcomeTimedOut
			break
		}
		if err != nil {
			logger.Debug("idle check %d failed, treating as busy: %v", result.Polls, err)
		}

		now := clock.Now()
		if !now.Before(deadline) {
			result.Outcome = OutcomeTimedOut
			break
		}

		sleep := interval
		if remaining := deadline.Sub(now); remaining < sleep {
			sleep = remaining
		}
		clock.Sleep(ctx, sleep)
	}

	result.Elapsed = clock.Now().Sub(start)
	return result
}

// check runs one predicate call bounded by budget. expired reports that the
// budget ran out before the predicate answered, or while it was answering.
// A predicate that ignores its context is left to finish on its own; its
// answer is discarded.
func check(ctx context.Context, budget time.Duration, isIdle IdleFunc) (idle, expired bool, err error) {
	checkCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type answer struct {
		idle bool
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		idle, err := isIdle(checkCtx)
		done <- answer{idle: idle, err: err}
	}()

	select {
	case a := <-done:
		return a.idle, checkCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil, a.err
	case <-checkCtx.Done():
		return false, ctx.Err() == nil, checkCtx.Err()
	}
}
