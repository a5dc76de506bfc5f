// Package retry provides context-aware retries with exponential
// backoff and jitter. Only errors explicitly marked recoverable are
// retried; everything else fails fast.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
)

// RecoverableError marks an error as safe to retry.
type RecoverableError struct {
	err error
}

func NewRecoverableError(err error) *RecoverableError {
	return &RecoverableError{err: err}
}

func (e *RecoverableError) Error() string {
	return e.err.Error()
}

func (e *RecoverableError) Unwrap() error {
	return e.err
}

// IsRecoverable reports whether err is marked recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var recoverable *RecoverableError
	return errors.As(err, &recoverable)
}

// Option configures a Do call.
type Option func(*settings)

type settings struct {
	maxRetries int
	baseWait   time.Duration
}

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.maxRetries = n }
}

// WithBaseWait sets the wait before the second attempt; subsequent
// waits grow exponentially with a small random jitter.
func WithBaseWait(d time.Duration) Option {
	return func(s *settings) { s.baseWait = d }
}

// Do invokes f until it succeeds, returns a non-recoverable error,
// the attempts are exhausted, or the context is canceled. The last
// error from f is returned unwrapped from its recoverable marker.
func Do(ctx context.Context, f func() error, opts ...Option) error {
	s := &settings{
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
	}
	for _, opt := range opts {
		opt(s)
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(s.baseWait) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}
		err := f()
		if err == nil {
			return nil
		}
		if !IsRecoverable(err) {
			return err
		}
		lastErr = err
	}
	var recoverable *RecoverableError
	if errors.As(lastErr, &recoverable) {
		return recoverable.err
	}
	return lastErr
}
