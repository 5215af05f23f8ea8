package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
}

// StatusError reports an unexpected HTTP status from an upstream call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithBackoff executes a function with exponential backoff retry logic
func WithBackoff(ctx context.Context, config Config, operation func(context.Context) error) error {
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == config.MaxRetries {
			return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, err)
		}

		delay := config.BaseDelay * time.Duration(1<<attempt)
		if config.BaseDelay > 0 {
			delay += time.Duration(rand.Int63n(int64(config.BaseDelay)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return HTTPStatusRetryable(status.Code)
	}

	errStr := strings.ToLower(err.Error())

	// Network-level errors are generally retryable
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "status 429") {
		return true
	}

	if strings.Contains(errStr, "status 4") {
		return false
	}

	// Unknown error formats are retried.
	return true
}

// HTTPStatusRetryable checks if an HTTP status code is retryable
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
