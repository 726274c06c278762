// Package backoff provides retry delay strategies for the executor.
// Strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// Func adapts a plain function to a Strategy.
type Func func(attempt int) time.Duration

// Delay calls f.
func (f Func) Delay(attempt int) time.Duration { return f(attempt) }

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration { return c.Interval }

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt, capped at Max.
// With Jitter set the delay is drawn uniformly from [0, cap] (full jitter).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// NewExponential creates an exponential backoff strategy without jitter.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay, Jitter: true}
}

// Delay returns min(Initial * 2^(attempt-1), Max), jittered if enabled.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	if e.Jitter {
		return time.Duration(rand.Float64() * base) //nolint:gosec // jitter does not need crypto rand
	}
	return time.Duration(base)
}

// ──────────────────────────────────────────────────
// Polynomial
// ──────────────────────────────────────────────────

// Polynomial grows the delay with the fourth power of the attempt plus a
// base offset and a small random spread proportional to the attempt:
// attempt^4 + Base + rand(Spread)*(attempt+1) seconds. This is the classic
// Sidekiq retry schedule.
type Polynomial struct {
	Base   time.Duration
	Spread int
}

// NewPolynomial creates the Sidekiq-style schedule (15s base, spread 10).
func NewPolynomial() *Polynomial {
	return &Polynomial{Base: 15 * time.Second, Spread: 10}
}

// Delay returns the polynomial delay for attempt.
func (p *Polynomial) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	n := attempt - 1
	d := time.Duration(n*n*n*n)*time.Second + p.Base
	if p.Spread > 0 {
		d += time.Duration(rand.IntN(p.Spread)*(n+1)) * time.Second //nolint:gosec // spread does not need crypto rand
	}
	return d
}

// ──────────────────────────────────────────────────
// Defaults
// ──────────────────────────────────────────────────

// DefaultStrategy returns the backoff used for charged retries:
// exponential with full jitter, 1s initial and 1m max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(time.Second, time.Minute)
}

// DefaultFreeStrategy returns the backoff used for free retries. Free
// retries target transient failures, so the first ones come back quickly.
func DefaultFreeStrategy() Strategy {
	return NewExponential(time.Second, 30*time.Second)
}
