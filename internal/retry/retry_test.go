package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, Options{MaxRetries: 2, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("got %q", v)
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	want := errors.New("still broken")
	calls := 0
	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, want
	}, Options{MaxRetries: 2, Delay: time.Millisecond})
	if !errors.Is(err, want) {
		t.Fatalf("expected final error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
}

func TestDoIfStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := DoIf(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("validation failed")
	}, IsRetryable, Options{MaxRetries: 5, Delay: time.Millisecond})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not retry, got %d calls", calls)
	}
}

func TestOnRetryObservesAttempts(t *testing.T) {
	var attempts []int
	_, _ = Do(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errors.New("always")
	}, Options{MaxRetries: 2, Delay: time.Millisecond, OnRetry: func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}})
	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Fatalf("expected attempts [0 1], got %v", attempts)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, func(ctx context.Context) (int, error) {
		return 0, errors.New("transient")
	}, Options{MaxRetries: 3, Delay: time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", &StatusError{Status: 429}, true},
		{"server fault", &StatusError{Status: 502}, true},
		{"bad request", &StatusError{Status: 400}, false},
		{"unauthorized", &StatusError{Status: 401}, false},
		{"dns", &net.DNSError{Err: "no such host"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"plain", errors.New("content policy violation"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable=%v, want %v", tc.name, got, tc.want)
		}
	}
}
