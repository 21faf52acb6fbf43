package resilience

import (
	"context"
	"math/rand"
	"time"

	perr "nextreel/internal/platform/errors"
)

// Policy controls retry cadence. Zero values pick the defaults
type Policy struct {
	Attempts int           // total tries including the first
	Base     time.Duration // first backoff delay
	Ceiling  time.Duration // backoff cap
}

func (p *Policy) withDefaults() {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Base <= 0 {
		p.Base = 100 * time.Millisecond
	}
	if p.Ceiling <= 0 {
		p.Ceiling = 2 * time.Second
	}
}

// Retry runs fn until success, a non retryable error, or the attempt budget
// is spent. Backoff doubles per attempt with jitter up to the ceiling.
// Breaker rejections are never retried; the circuit owns the cooldown.
// Context cancellation wins over any pending backoff sleep
func Retry(ctx context.Context, p Policy, fn func(context.Context) error) error {
	p.withDefaults()

	delay := p.Base
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) || attempt >= p.Attempts {
			return err
		}
		if sleepErr := sleep(ctx, jitter(delay)); sleepErr != nil {
			return err
		}
		if delay *= 2; delay > p.Ceiling {
			delay = p.Ceiling
		}
	}
}

func retryable(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeCircuitOpen:
		return false
	case perr.ErrorCodeUnavailable, perr.ErrorCodeTooManyRequests:
		return true
	}
	return perr.IsRetryable(err)
}

// jitter spreads a delay over [d/2, d) so lockstep retries fan out
func jitter(d time.Duration) time.Duration {
	half := int64(d / 2)
	if half <= 0 {
		return d
	}
	return time.Duration(half + rand.Int63n(half))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
