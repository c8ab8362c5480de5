package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNetwork marks a Redis call that failed below the protocol level.
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss is what [GetOrMiss] returns for a missing key.
	ErrCacheMiss = errors.New("cache miss")
)

// RetryableError marks a transient backend failure. Only these are retried
// by [RetryWithBackoff]; a decode error or a miss is final.
type RetryableError struct{ Err error }

func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err wraps a [RetryableError].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryDelay is the first backoff delay of [RetryWithBackoff].
var retryDelay = 100 * time.Millisecond

// RetryWithBackoff calls fn up to three times, doubling the delay after
// each retryable failure. The runner wraps cache lookups in it so a Redis
// hiccup does not turn into a full recompute.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	const attempts = 3
	delay := retryDelay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// GetOrMiss is Get with a miss reported as [ErrCacheMiss], for use inside
// [RetryWithBackoff].
func GetOrMiss(ctx context.Context, c Cache, key string) ([]byte, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}
