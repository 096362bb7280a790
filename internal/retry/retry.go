package retry

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// Options controls the retry loop. MaxRetries counts retries, not total
// attempts: MaxRetries=2 allows up to 3 invocations.
type Options struct {
	MaxRetries  int
	Delay       time.Duration
	Exponential bool
	// OnRetry is invoked before each sleep with the zero-based attempt
	// index and the error that triggered the retry. Observability only;
	// it must not affect control flow.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds or retries are exhausted, returning the
// error of the final attempt. The delay before retry n+1 is Delay (fixed)
// or Delay*2^n (exponential).
func Do[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	return DoIf(ctx, fn, func(error) bool { return true }, opts)
}

// DoIf is like Do but only retries errors matching shouldRetry.
func DoIf[T any](ctx context.Context, fn func(ctx context.Context) (T, error), shouldRetry func(error) bool, opts Options) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= opts.MaxRetries || !shouldRetry(err) {
			return zero, lastErr
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		delay := opts.Delay
		if opts.Exponential {
			delay = opts.Delay << attempt
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// StatusError carries an upstream HTTP status so the classifier can tell
// throttling and server faults apart from permanent request errors.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "upstream status " + strconv.Itoa(e.Status)
}

// IsRetryable classifies provider failures: network resets, timeouts and
// DNS faults, 5xx responses and 429 throttling are retryable; everything
// else (validation, authorization, content policy) is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == 429 || se.Status >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var dns *net.DNSError
	if errors.As(err, &dns) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	for _, s := range []string{"connection reset", "connection refused", "broken pipe", "EOF"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
