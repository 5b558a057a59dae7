// Package retry provides backoff policies and per-task retry bookkeeping for
// the monitor.
//
// A [Policy] describes how long to wait after consecutive failures. The
// monitor keeps one [Backoff] per error class (feed queries and bid
// submissions) so that a flaky indexer does not slow down submissions and
// vice versa. [Tracker] records how often each task has been retried and the
// last error seen, which ends up in logs and the CLI status line.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Policy is an exponential backoff with an optional cap and jitter.
type Policy struct {
	// Interval is the delay after the first failure.
	Interval time.Duration
	// Max caps the delay. Zero means no cap.
	Max time.Duration
	// Multiplier grows the delay per consecutive failure. Values below 1
	// are treated as 1 (constant delay).
	Multiplier float64
	// Jitter randomizes each delay by up to ±Jitter of its value, 0..1.
	Jitter float64
}

// Delay returns the un-jittered delay for the given zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if p.Interval <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.Interval) * math.Pow(mult, float64(attempt))
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Backoff tracks consecutive failures against a Policy.
// It is safe for concurrent use.
type Backoff struct {
	mu      sync.Mutex
	policy  Policy
	attempt int
	rand    func() float64
}

// BackoffOption configures a Backoff.
type BackoffOption func(*Backoff)

// WithRand overrides the jitter source, which must return values in [0, 1).
func WithRand(fn func() float64) BackoffOption {
	return func(b *Backoff) {
		b.rand = fn
	}
}

// NewBackoff creates a Backoff for p.
func NewBackoff(p Policy, opts ...BackoffOption) *Backoff {
	b := &Backoff{
		policy: p,
		rand:   rand.Float64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Next records a failure and returns how long to wait before trying again.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.policy.Delay(b.attempt)
	b.attempt++

	if j := b.policy.Jitter; j > 0 && d > 0 {
		if j > 1 {
			j = 1
		}
		// Scale by a factor in [1-j, 1+j).
		d = time.Duration(float64(d) * (1 + j*(2*b.rand()-1)))
		if b.policy.Max > 0 && d > b.policy.Max {
			d = b.policy.Max
		}
	}
	return d
}

// Reset clears the failure count after a success.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt = 0
}

// Attempts returns the number of consecutive failures recorded.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}

// Policy returns the policy this Backoff applies.
func (b *Backoff) Policy() Policy {
	return b.policy
}

// Wait blocks for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when interrupted.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
