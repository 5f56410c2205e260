package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, Jitter: 0}
}

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var notified []int
	got, err := Do(context.Background(), fastPolicy(5), isTransient,
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errTransient
			}
			return "ok", nil
		},
		func(attempt int, _ error, _ time.Duration) { notified = append(notified, attempt) },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Errorf("unexpected notifications: %v", notified)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(4), isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		}, nil)
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestDo_PermanentFailsImmediately(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, permanent
		}, nil)
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}
	_, err := Do(ctx, p, isTransient, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, w := range want {
		if got := p.Delay(i); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestExponential_JitterBounds(t *testing.T) {
	b := &exponential{policy: Policy{BaseDelay: 10 * time.Millisecond, Jitter: 5 * time.Millisecond}}
	for i := range 4 {
		d := b.NextBackOff()
		lo := 10 * time.Millisecond << i
		if d < lo || d >= lo+5*time.Millisecond {
			t.Errorf("attempt %d: %v outside [%v, %v)", i, d, lo, lo+5*time.Millisecond)
		}
	}
	b.Reset()
	if d := b.NextBackOff(); d < 10*time.Millisecond || d >= 15*time.Millisecond {
		t.Errorf("after reset: %v", d)
	}
}

func TestPolicy_Normalize(t *testing.T) {
	p := Policy{BaseDelay: -1, Jitter: -1}.Normalize()
	if p.MaxAttempts != 5 || p.BaseDelay != 0 || p.Jitter != 0 {
		t.Errorf("unexpected normalized policy: %+v", p)
	}
}
