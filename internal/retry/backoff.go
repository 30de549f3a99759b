// Package retry re-runs the opening of outbound transports with
// exponential backoff.  The transport server never retries on its own;
// callers that want resilience drive it from here.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"lanshare/config"
)

// ── Final errors ─────────────────────────────────────────────────────

// FinalError marks an error that another attempt cannot fix, such as
// a refused device descriptor or failed gateway authentication.
type FinalError struct {
	Err error
}

func (e *FinalError) Error() string { return e.Err.Error() }
func (e *FinalError) Unwrap() error { return e.Err }

// Final wraps err so that [Policy.Do] gives up at once.
func Final(err error) error {
	if err == nil {
		return nil
	}
	return &FinalError{Err: err}
}

// IsFinal reports whether err was wrapped with [Final].
func IsFinal(err error) bool {
	var fe *FinalError
	return errors.As(err, &fe)
}

// ── Policy ───────────────────────────────────────────────────────────

// Policy describes how often and how patiently to retry.
type Policy struct {
	// Attempts is the total number of tries including the first.
	// Values below 1 mean a single try.
	Attempts int
	// Delay is the pause before the second try; it doubles after each
	// failure up to MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration
	// Jitter spreads each pause by ±25%.
	Jitter bool
}

// WithRetries returns the policy for one try plus n retries.
func WithRetries(n int) Policy {
	return Policy{
		Attempts: n + 1,
		Delay:    config.DefaultRetryDelay,
		MaxDelay: config.DefaultRetryMaxDelay,
		Jitter:   true,
	}
}

// Do calls fn until it returns nil or a [Final] error, the attempts
// run out, or ctx ends.  attempt is 1-based.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	if delay <= 0 {
		delay = config.DefaultRetryDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay < delay {
		maxDelay = delay
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsFinal(err) {
			return errors.Unwrap(err)
		}
		if attempt >= attempts {
			if attempts == 1 {
				return err
			}
			return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}

		wait := delay
		if p.Jitter {
			wait = jitter(delay)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		delay = min(delay*2, maxDelay)
	}
}

// Rotate returns addrs reordered so that attempt n leads with the n-th
// address, wrapping around.  The input is not modified.
func Rotate(addrs []string, attempt int) []string {
	if len(addrs) < 2 || attempt < 1 {
		return addrs
	}
	i := (attempt - 1) % len(addrs)
	out := make([]string, 0, len(addrs))
	out = append(out, addrs[i:]...)
	return append(out, addrs[:i]...)
}

func jitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	return time.Duration(math.Max(float64(d)+delta, float64(time.Millisecond)))
}
