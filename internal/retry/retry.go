// Package retry wraps fallible outbound calls with exponential backoff.
//
// Only transport-level failures are retried: connect and read timeouts and
// connections closed by the remote end mid-response. Everything else,
// including HTTP status errors and malformed bodies, is returned to the caller
// on the first occurrence so that it does not consume the retry budget.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy describes how many times an operation is attempted and how long to
// wait between attempts.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// Factor multiplies the delay after every failed attempt.
	Factor float64

	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool

	// OnRetry, when set, is called before each wait with the 1-based number
	// of the attempt that failed, the delay about to be applied and the error.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns the policy used for provider calls when nothing else
// is configured: 3 attempts, 1s initial delay, doubling, with jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Factor:       2.0,
		Jitter:       true,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Factor < 1 {
		p.Factor = 1
	}
	return p
}

// backoff builds a fresh go-retry backoff for a single Do invocation.
func (p Policy) backoff(lastErr *error) goretry.Backoff {
	next := p.InitialDelay
	var b goretry.Backoff = goretry.BackoffFunc(func() (time.Duration, bool) {
		d := next
		next = time.Duration(float64(next) * p.Factor)
		return d, false
	})
	if p.Jitter && p.InitialDelay > 0 {
		b = goretry.WithJitterPercent(50, b)
	}
	b = goretry.WithMaxRetries(uint64(p.MaxAttempts-1), b)

	attempt := 0
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if stop {
			return 0, true
		}
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(attempt, d, *lastErr)
		}
		return d, false
	})
}

// Do runs op until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var lastErr error
	return goretry.DoValue(ctx, p.backoff(&lastErr), func(ctx context.Context) (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		// go-retry checks ctx before sleeping, so a cancelled parent ends
		// the loop with ctx.Err() even for retryable failures.
		if IsRetryable(err) {
			return v, goretry.RetryableError(err)
		}
		return v, err
	})
}

type markedError struct {
	err error
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

// MarkRetryable flags err as transient so that IsRetryable reports true for
// it even when its type would not be recognised.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err}
}

// IsRetryable reports whether err is a transient transport failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var marked *markedError
	if errors.As(err, &marked) {
		return true
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Remote end closed the connection while we were reading or writing.
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	return false
}
