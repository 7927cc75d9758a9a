package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, Fixed(3, time.Millisecond), nil, func(ctx context.Context, attempt int) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v, want nil", err)
	}
	if calls != 2 {
		t.Fatalf("fn called %d times, want 2", calls)
	}
}

func TestDoRespectsClassifier(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), nil, Fixed(5, time.Millisecond), func(err error) bool {
		return !errors.Is(err, permanent)
	}, func(ctx context.Context, attempt int) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do returned %v, want permanent error", err)
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1 (no retry on permanent)", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), nil, Fixed(3, time.Millisecond), nil, func(ctx context.Context, attempt int) error {
		calls++
		if attempt != calls {
			t.Fatalf("attempt=%d, want %d", attempt, calls)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do returned %v, want boom", err)
	}
	if calls != 3 {
		t.Fatalf("fn called %d times, want 3", calls)
	}
}

func TestDoHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, nil, Fixed(3, time.Millisecond), nil, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("never retried")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do returned %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("fn called %d times, want 0", calls)
	}
}

func TestLinearLadder(t *testing.T) {
	p := Linear(4, 500*time.Millisecond)
	want := []time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond}
	if len(p.Delays) != len(want) {
		t.Fatalf("got %d delays, want %d", len(p.Delays), len(want))
	}
	for i, d := range want {
		if p.Delays[i] != d {
			t.Fatalf("delay[%d]=%s, want %s", i, p.Delays[i], d)
		}
	}
}

func TestFixedLadderRepeatsLastEntry(t *testing.T) {
	p := Fixed(4, time.Second, 2*time.Second)
	if got := p.delayFor(1); got != time.Second {
		t.Fatalf("delayFor(1)=%s, want 1s", got)
	}
	if got := p.delayFor(2); got != 2*time.Second {
		t.Fatalf("delayFor(2)=%s, want 2s", got)
	}
	if got := p.delayFor(3); got != 2*time.Second {
		t.Fatalf("delayFor(3)=%s, want 2s (last entry repeats)", got)
	}
}
