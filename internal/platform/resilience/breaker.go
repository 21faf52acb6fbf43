// Package resilience provides circuit breaker and retry primitives shared by
// backends that talk to flaky dependencies
package resilience

import (
	stderrs "errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	perr "nextreel/internal/platform/errors"
	"nextreel/internal/platform/logger"
)

// State is the reduced breaker state exposed to callers
type State int

const (
	// StateClosed means calls flow through normally
	StateClosed State = iota
	// StateHalfOpen means one probe call is allowed through
	StateHalfOpen
	// StateOpen means calls are rejected without touching the dependency
	StateOpen
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes one Breaker instance
type BreakerConfig struct {
	// Name tags log lines and rejection errors
	Name string
	// Threshold is the consecutive failure count that opens the circuit
	Threshold uint32
	// Interval resets closed-state counts so stale failures do not accumulate
	Interval time.Duration
	// Cooldown is the open-state dwell before the single half-open probe
	Cooldown time.Duration
	// OnChange fires on every state transition (optional)
	OnChange func(name string, from, to State)
	// Ignore marks errors that should not count as failures, e.g. a
	// provider 404 for a title that has no metadata (optional)
	Ignore func(err error) bool
}

func (c *BreakerConfig) withDefaults() {
	if c.Name == "" {
		c.Name = "breaker"
	}
	if c.Threshold == 0 {
		c.Threshold = 5
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
}

// Breaker guards calls to one downstream dependency. The half-open state
// admits exactly one probe; a success closes the circuit, a failure re-opens
// it for another cooldown
type Breaker[T any] struct {
	cb   *gobreaker.CircuitBreaker[T]
	name string
}

// NewBreaker builds a Breaker from config
func NewBreaker[T any](cfg BreakerConfig) *Breaker[T] {
	cfg.withDefaults()
	log := logger.Named("breaker")

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1, // single probe while half-open
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f, t := fromGobreaker(from), fromGobreaker(to)
			log.Info().
				Str("breaker", name).
				Str("from", f.String()).
				Str("to", t.String()).
				Msg("circuit state change")
			if cfg.OnChange != nil {
				cfg.OnChange(name, f, t)
			}
		},
	}
	if cfg.Ignore != nil {
		ignore := cfg.Ignore
		st.IsSuccessful = func(err error) bool { return err == nil || ignore(err) }
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](st), name: cfg.Name}
}

// Do runs fn under the breaker. Rejections while open or during a busy
// half-open window come back coded ErrorCodeCircuitOpen and fn is never called
func (b *Breaker[T]) Do(fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(fn)
	if err != nil && Rejected(err) {
		var zero T
		return zero, perr.Wrapf(err, perr.ErrorCodeCircuitOpen, "%s circuit open", b.name)
	}
	return out, err
}

// Name returns the breaker name
func (b *Breaker[T]) Name() string { return b.name }

// State reports the current circuit state
func (b *Breaker[T]) State() State { return fromGobreaker(b.cb.State()) }

// Open reports whether the circuit currently rejects calls
func (b *Breaker[T]) Open() bool { return b.cb.State() == gobreaker.StateOpen }

// Rejected reports whether err is a breaker rejection rather than a failure
// of the wrapped call itself
func Rejected(err error) bool {
	return stderrs.Is(err, gobreaker.ErrOpenState) || stderrs.Is(err, gobreaker.ErrTooManyRequests)
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateOpen
	}
}
