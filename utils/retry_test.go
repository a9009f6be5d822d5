package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func quietRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Logger:      NewLoggerTo(io.Discard, io.Discard, LevelError),
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := quietRetry(5).Do(context.Background(), "dial", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	cause := errors.New("connection refused")
	calls := 0
	err := quietRetry(3).Do(context.Background(), "dial", func() error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	r := quietRetry(10)
	r.BaseDelay = time.Hour
	err := r.Do(ctx, "dial", func() error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
