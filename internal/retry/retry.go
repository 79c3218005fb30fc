// Package retry wraps calls to remote collaborators (object storage, the
// message broker) in bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"time"
)

// Config controls retry behavior.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	// Retryable decides whether err is worth another attempt. Nil retries
	// network errors only.
	Retryable func(error) bool
}

// Default is suitable for most remote calls.
var Default = Config{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// Always retries every error except context cancellation.
func Always(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do retries fn up to MaxRetries times with exponential backoff.
// It returns immediately on a non-retryable error or context cancellation.
func Do[T any](ctx context.Context, rc Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	retryable := rc.Retryable
	if retryable == nil {
		retryable = IsNetwork
	}

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := rc.backoff(attempt)
			slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// Run is Do for functions without a result.
func Run(ctx context.Context, rc Config, fn func() error) error {
	_, err := Do(ctx, rc, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (rc Config) backoff(attempt int) time.Duration {
	mult := rc.Multiplier
	if mult <= 0 {
		mult = 2
	}
	wait := time.Duration(float64(rc.InitialWait) * math.Pow(mult, float64(attempt)))
	if rc.MaxWait > 0 && wait > rc.MaxWait {
		wait = rc.MaxWait
	}
	return wait
}

// IsNetwork returns true for transient network errors.
func IsNetwork(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
