package lumen

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoffStepJitterBounds(t *testing.T) {
	base := time.Second
	max := 30 * time.Second
	for i := 0; i < 100; i++ {
		wait, next := backoffStep(base, max)
		if wait < base || wait >= time.Duration(float64(base)*1.3)+time.Nanosecond {
			t.Fatalf("wait %v outside [base, base*1.3)", wait)
		}
		if next != 2*time.Second {
			t.Fatalf("next should double, got %v", next)
		}
	}
}

func TestBackoffStepMonotonicAndCapped(t *testing.T) {
	max := 30 * time.Second
	cur := time.Second
	var prevWait time.Duration
	for i := 0; i < 12; i++ {
		wait, next := backoffStep(cur, max)
		if wait < prevWait {
			t.Fatalf("wait decreased: %v after %v", wait, prevWait)
		}
		if wait > max {
			t.Fatalf("wait %v exceeds cap %v", wait, max)
		}
		prevWait = wait
		cur = next
	}
	if cur != max {
		t.Fatalf("delay should have reached the cap, got %v", cur)
	}
}

func testReconnectorConfig() Config {
	cfg := DefaultConfig()
	cfg.ReconnectInterval = time.Millisecond
	cfg.MaxReconnectDelay = 5 * time.Millisecond
	cfg.MaxReconnectTries = 3
	return cfg
}

func TestReconnectorSingleFlight(t *testing.T) {
	r := newReconnector(testReconnectorConfig(), noopLogger{})
	var attempts atomic.Int32
	release := make(chan struct{})
	r.attempt = func() error {
		attempts.Add(1)
		<-release
		return nil
	}
	r.shouldRetry = func() bool { return false }

	// Back-to-back triggers before the first attempt completes must
	// arm exactly one attempt.
	r.schedule()
	r.schedule()
	r.schedule()

	waitFor(t, time.Second, func() bool { return attempts.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected exactly one attempt in flight, got %d", got)
	}
	close(release)
}

func TestReconnectorBudgetExhaustion(t *testing.T) {
	r := newReconnector(testReconnectorConfig(), noopLogger{})
	var exhausted atomic.Int32
	var reported atomic.Int32
	r.attempt = func() error { return NewError(ErrorConnection, "refused") }
	r.shouldRetry = func() bool { return true }
	r.onExhausted = func(n int) {
		exhausted.Add(1)
		reported.Store(int32(n))
	}

	r.schedule()
	waitFor(t, time.Second, func() bool { return exhausted.Load() == 1 })
	if reported.Load() != 3 {
		t.Fatalf("expected 3 attempts reported, got %d", reported.Load())
	}

	// Exhaustion is terminal until a re-arm.
	r.schedule()
	time.Sleep(20 * time.Millisecond)
	if exhausted.Load() != 1 {
		t.Fatal("exhaustion event must fire once")
	}

	r.rearm()
	r.schedule()
	waitFor(t, time.Second, func() bool { return exhausted.Load() == 2 })
}

func TestReconnectorResetRestoresDelay(t *testing.T) {
	r := newReconnector(testReconnectorConfig(), noopLogger{})
	r.attempt = func() error { return NewError(ErrorConnection, "refused") }
	r.shouldRetry = func() bool { return false }

	r.schedule()
	waitFor(t, time.Second, func() bool { return !r.isReconnecting() })
	r.mu.Lock()
	grown := r.delay
	r.mu.Unlock()
	if grown <= r.base {
		t.Fatalf("delay should have grown, got %v", grown)
	}

	r.onConnected()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delay != r.base || r.attempts != 0 {
		t.Fatalf("reset should restore base delay and attempts, got %v/%d", r.delay, r.attempts)
	}
}
