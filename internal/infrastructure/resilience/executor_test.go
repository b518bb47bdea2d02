package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesRetryableErrors(t *testing.T) {
	e := NewExecutor(fastConfig(), nil)
	calls := 0
	err := e.Execute(context.Background(), "generate", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	e := NewExecutor(fastConfig(), nil)
	calls := 0
	wantErr := errors.New("bad request")
	err := e.Execute(context.Background(), "embed", func(context.Context) error {
		calls++
		return wantErr
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	e := NewExecutor(fastConfig(), nil)
	calls := 0
	err := e.Execute(context.Background(), "generate", func(context.Context) error {
		calls++
		return errors.New("down")
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	e := NewExecutor(fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Execute(ctx, "generate", func(context.Context) error {
		t.Fatal("callback must not run after cancellation")
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.RetryMaxAttempts = 1
	e := NewExecutor(cfg, nil)

	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
	for i := 0; i < 2; i++ {
		_ = e.Execute(context.Background(), "generate", func(context.Context) error {
			return errors.New("down")
		}, classifier)
	}

	err := e.Execute(context.Background(), "generate", func(context.Context) error {
		t.Fatal("open breaker must short-circuit the call")
		return nil
	}, classifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open-circuit error, got %v", err)
	}
}
