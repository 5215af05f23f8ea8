package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestWithBackoff_Success(t *testing.T) {
	config := Config{MaxRetries: 3, BaseDelay: 1 * time.Millisecond}
	attempts := 0

	operation := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := WithBackoff(context.Background(), config, operation)
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}

	if attempts != 3 {
		t.Fatalf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithBackoff_FailureAfterMaxRetries(t *testing.T) {
	config := Config{MaxRetries: 2, BaseDelay: 1 * time.Millisecond}
	attempts := 0

	operation := func(ctx context.Context) error {
		attempts++
		return &StatusError{Code: http.StatusBadGateway}
	}

	err := WithBackoff(context.Background(), config, operation)
	if err == nil {
		t.Fatal("Expected failure, got success")
	}
	if attempts != 3 {
		t.Fatalf("Expected 3 attempts, got %d", attempts)
	}
	if !strings.HasPrefix(err.Error(), "operation failed after 3 attempts") {
		t.Fatalf("Expected retry failure error, got: %v", err)
	}
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusBadGateway {
		t.Errorf("Expected wrapped StatusError, got %v", err)
	}
}

func TestWithBackoff_NonRetryableStatus(t *testing.T) {
	config := Config{MaxRetries: 3, BaseDelay: 1 * time.Millisecond}
	attempts := 0

	operation := func(ctx context.Context) error {
		attempts++
		return &StatusError{Code: http.StatusUnauthorized, Body: "apiKeyInvalid"}
	}

	err := WithBackoff(context.Background(), config, operation)
	if err == nil {
		t.Fatal("Expected failure, got success")
	}
	if attempts != 1 {
		t.Fatalf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
	if !strings.HasPrefix(err.Error(), "non-retryable error") {
		t.Fatalf("Expected non-retryable error, got: %v", err)
	}
}

func TestWithBackoff_Permanent(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), Config{MaxRetries: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return Permanent(errors.New("network unreachable"))
	})
	if err == nil || attempts != 1 {
		t.Fatalf("Expected a single failed attempt, got %d attempts, err=%v", attempts, err)
	}
}

func TestWithBackoff_ContextCancellation(t *testing.T) {
	config := Config{MaxRetries: 5, BaseDelay: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	operation := func(ctx context.Context) error {
		attempts++
		return errors.New("connection reset by peer")
	}

	err := WithBackoff(ctx, config, operation)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline exceeded, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestWithBackoff_ZeroBaseDelay(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), Config{MaxRetries: 1}, func(ctx context.Context) error {
		attempts++
		return errors.New("timeout")
	})
	if err == nil || attempts != 2 {
		t.Fatalf("Expected 2 attempts and an error, got %d, %v", attempts, err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("i/o timeout"), true},
		{fmt.Errorf("newsapi: %w", &StatusError{Code: 429}), true},
		{&StatusError{Code: 503}, true},
		{&StatusError{Code: 404}, false},
		{errors.New("discord: unexpected status 400"), false},
		{Permanent(&StatusError{Code: 500}), false},
		{context.Canceled, false},
		{errors.New("something odd"), true},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.retryable {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
}

func TestHTTPStatusRetryable(t *testing.T) {
	tests := []struct {
		statusCode int
		retryable  bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		if got := HTTPStatusRetryable(tt.statusCode); got != tt.retryable {
			t.Errorf("HTTPStatusRetryable(%d) = %v, want %v", tt.statusCode, got, tt.retryable)
		}
	}
}
