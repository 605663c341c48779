package noark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        40 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func serverErr() error {
	return &Error{Operation: "query", StatusCode: 503, Class: ErrorClassServer, Message: "unavailable"}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1 (retries disabled)", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_DisabledReturnsFirstError(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), zerolog.Nop(), func() error {
		calls++
		return serverErr()
	}, classifyError)

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Disabled retry should return the original error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Errorf("Expected original *Error, got %v", err)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), zerolog.Nop(), func() error {
		calls++
		return nil
	}, classifyError)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), zerolog.Nop(), func() error {
		calls++
		if calls < 3 {
			return serverErr()
		}
		return nil
	}, classifyError)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), zerolog.Nop(), func() error {
		calls++
		return serverErr()
	}, classifyError)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Error("Exhausted error should still wrap the last *Error")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", calls)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	calls := 0
	clientErr := &Error{StatusCode: 400, Class: ErrorClassClient, Message: "bad query"}
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), zerolog.Nop(), func() error {
		calls++
		return clientErr
	}, classifyError)

	if calls != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", calls)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors")
	}
	if !errors.Is(err, clientErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := retryWithBackoff(ctx, RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second, BackoffMultiplier: 2}, zerolog.Nop(), func() error {
		calls++
		cancel()
		return serverErr()
	}, classifyError)

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	var timestamps []time.Time
	config := RetryConfig{MaxAttempts: 3, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, BackoffMultiplier: 2}

	_ = retryWithBackoff(context.Background(), config, zerolog.Nop(), func() error {
		timestamps = append(timestamps, time.Now())
		return serverErr()
	}, classifyError)

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	first := timestamps[1].Sub(timestamps[0])
	second := timestamps[2].Sub(timestamps[1])

	// ±20% jitter around 50ms and 100ms
	if first < 40*time.Millisecond {
		t.Errorf("First retry delay %v shorter than expected", first)
	}
	if second < 80*time.Millisecond {
		t.Errorf("Second retry delay %v shorter than expected", second)
	}
}

func TestRetryWithBackoff_MaxBackoffCap(t *testing.T) {
	var timestamps []time.Time
	config := RetryConfig{MaxAttempts: 3, InitialBackoff: 20 * time.Millisecond, MaxBackoff: 20 * time.Millisecond, BackoffMultiplier: 10}

	_ = retryWithBackoff(context.Background(), config, zerolog.Nop(), func() error {
		timestamps = append(timestamps, time.Now())
		return serverErr()
	}, classifyError)

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}
	if second := timestamps[2].Sub(timestamps[1]); second > 150*time.Millisecond {
		t.Errorf("Second delay %v not capped at MaxBackoff", second)
	}
}
