package lumen

import (
	"sync/atomic"
	"testing"
	"time"
)

func testHeartbeatConfig() Config {
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.PongTimeout = 20 * time.Millisecond
	cfg.LatencyWarning = time.Hour
	return cfg
}

func TestHeartbeatTimeoutFires(t *testing.T) {
	h := newHeartbeat(testHeartbeatConfig(), noopLogger{})
	var pings, timeouts atomic.Int32
	h.sendPing = func() bool { pings.Add(1); return true }
	h.onTimeout = func() { timeouts.Add(1) }

	h.start()
	defer h.stop()

	waitFor(t, time.Second, func() bool { return pings.Load() >= 1 })
	waitFor(t, time.Second, func() bool { return timeouts.Load() >= 1 })
}

func TestHeartbeatPongCancelsWatchdog(t *testing.T) {
	h := newHeartbeat(testHeartbeatConfig(), noopLogger{})
	var pings, timeouts atomic.Int32
	h.sendPing = func() bool { pings.Add(1); return true }
	h.onTimeout = func() { timeouts.Add(1) }

	h.start()
	defer h.stop()

	// Answer every probe promptly.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				h.pong()
			}
		}
	}()

	waitFor(t, time.Second, func() bool { return pings.Load() >= 3 })
	if timeouts.Load() != 0 {
		t.Fatalf("answered probes must not time out, got %d", timeouts.Load())
	}
}

func TestHeartbeatPausedDoesNotProbe(t *testing.T) {
	h := newHeartbeat(testHeartbeatConfig(), noopLogger{})
	var pings atomic.Int32
	h.sendPing = func() bool { pings.Add(1); return true }
	h.onTimeout = func() {}

	h.start()
	defer h.stop()
	h.pause()

	time.Sleep(50 * time.Millisecond)
	if pings.Load() != 0 {
		t.Fatalf("paused monitor must not probe, got %d pings", pings.Load())
	}

	h.resume()
	waitFor(t, time.Second, func() bool { return pings.Load() >= 1 })
}

func TestHeartbeatLatencyFlagged(t *testing.T) {
	cfg := testHeartbeatConfig()
	cfg.LatencyWarning = time.Nanosecond
	h := newHeartbeat(cfg, noopLogger{})
	var flagged atomic.Int32
	h.sendPing = func() bool { return true }
	h.onTimeout = func() {}
	h.onLatency = func(time.Duration) { flagged.Add(1) }

	h.mu.Lock()
	h.lastPing = time.Now().Add(-time.Second)
	h.mu.Unlock()
	h.pong()

	if flagged.Load() != 1 {
		t.Fatal("slow pong should be flagged")
	}
}
