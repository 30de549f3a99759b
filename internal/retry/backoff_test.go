package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestPolicy_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestPolicy_SingleAttemptReturnsError(t *testing.T) {
	want := fmt.Errorf("refused")
	calls := 0
	err := Policy{}.Do(context.Background(), func(int) error {
		calls++
		return want
	})
	if err != want {
		t.Errorf("err = %v, want the original error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPolicy_FinalError(t *testing.T) {
	calls := 0
	err := fastPolicy(10).Do(context.Background(), func(int) error {
		calls++
		return Final(fmt.Errorf("invalid device"))
	})
	if err == nil || err.Error() != "invalid device" {
		t.Errorf("err = %v, want 'invalid device'", err)
	}
	if calls != 1 {
		t.Errorf("final error should stop after 1 call, got %d", calls)
	}
}

func TestPolicy_AttemptsExhausted(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(int) error {
		calls++
		return fmt.Errorf("always fails")
	})
	if err == nil {
		t.Fatal("expected error after the last attempt")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestPolicy_ContextCancelled(t *testing.T) {
	p := Policy{Attempts: 100, Delay: 5 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Do(ctx, func(int) error { return fmt.Errorf("fail") })
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Do did not stop when the context ended")
	}
}

func TestWithRetries(t *testing.T) {
	p := WithRetries(2)
	if p.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", p.Attempts)
	}
	if p.Delay <= 0 || p.MaxDelay < p.Delay {
		t.Errorf("bad delays %v/%v", p.Delay, p.MaxDelay)
	}
}

func TestFinal_Nil(t *testing.T) {
	if Final(nil) != nil {
		t.Error("Final(nil) should be nil")
	}
	if IsFinal(nil) || IsFinal(fmt.Errorf("x")) {
		t.Error("plain errors are not final")
	}
}

func TestRotate(t *testing.T) {
	addrs := []string{"a", "b", "c"}
	tests := []struct {
		attempt int
		want    []string
	}{
		{1, []string{"a", "b", "c"}},
		{2, []string{"b", "c", "a"}},
		{3, []string{"c", "a", "b"}},
		{4, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Rotate(addrs, tt.attempt)); diff != "" {
			t.Errorf("Rotate(%d) mismatch (-want +got):\n%s", tt.attempt, diff)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, addrs); diff != "" {
		t.Errorf("input modified:\n%s", diff)
	}
	if got := Rotate([]string{"only"}, 5); len(got) != 1 || got[0] != "only" {
		t.Errorf("single address rotated to %v", got)
	}
}

func TestJitter_Range(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := jitter(d)
		if j < time.Duration(float64(d)*0.74) || j > time.Duration(float64(d)*1.26) {
			t.Errorf("jitter %v out of range", j)
		}
	}
}
