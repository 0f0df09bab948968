package retry

import (
	"context"
	"time"
)

// Clock lets tests replace real sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock sleeps on the wall clock and wakes early when ctx is done.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds how often and how patiently a call is retried.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// Fixed waits the same delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts: attempts,
		Backoff:     func(int) time.Duration { return delay },
	}
}

// Exponential doubles the delay after every attempt, capped at max.
func Exponential(attempts int, base, max time.Duration) Policy {
	return Policy{
		MaxAttempts: attempts,
		Backoff: func(attempt int) time.Duration {
			d := base
			for i := 1; i < attempt; i++ {
				d *= 2
				if d >= max {
					return max
				}
			}
			return d
		},
	}
}

// Delay is the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempts run out. The last error is returned.
func (p Policy) Do(ctx context.Context, clock Clock, retryable func(error) bool, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil || !retryable(err) || attempt >= p.attempts() {
			return err
		}

		if sleepErr := clock.Sleep(ctx, p.Delay(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
}
