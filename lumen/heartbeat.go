package lumen

import (
	"sync"
	"time"
)

// heartbeat is the liveness monitor. While the connection is up it
// probes the server with ping frames on a fixed interval, short enough
// to beat the idle timeouts mobile intermediaries enforce. Each probe
// arms a watchdog; an unanswered probe forces the transport closed with
// CloseLivenessTimeout, which engages the reconnect policy exactly like
// a server-initiated unclean close.
type heartbeat struct {
	interval    time.Duration
	pongTimeout time.Duration
	latencyWarn time.Duration
	logger      Logger

	sendPing  func() bool
	onTimeout func()
	onLatency func(time.Duration)

	mu       sync.Mutex
	done     chan struct{}
	watchdog *time.Timer
	lastPing time.Time
	paused   bool
}

func newHeartbeat(cfg Config, logger Logger) *heartbeat {
	return &heartbeat{
		interval:    cfg.HeartbeatInterval,
		pongTimeout: cfg.PongTimeout,
		latencyWarn: cfg.LatencyWarning,
		logger:      logger,
	}
}

// start begins the probe loop. A running monitor is restarted. A
// non-positive interval disables the monitor entirely.
func (h *heartbeat) start() {
	h.stop()
	if h.interval <= 0 {
		return
	}
	h.mu.Lock()
	done := make(chan struct{})
	h.done = done
	h.mu.Unlock()

	go h.loop(done)
}

func (h *heartbeat) loop(done chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.probe()
		}
	}
}

func (h *heartbeat) probe() {
	h.mu.Lock()
	if h.paused || h.watchdog != nil {
		h.mu.Unlock()
		return
	}
	h.lastPing = time.Now()
	h.watchdog = time.AfterFunc(h.pongTimeout, h.fire)
	h.mu.Unlock()

	if !h.sendPing() {
		// The write already failed; let the close path handle it
		// instead of waiting out the watchdog.
		h.mu.Lock()
		if h.watchdog != nil {
			h.watchdog.Stop()
			h.watchdog = nil
		}
		h.mu.Unlock()
	}
}

func (h *heartbeat) fire() {
	h.mu.Lock()
	h.watchdog = nil
	h.mu.Unlock()
	h.logger.Warn("liveness probe unanswered", map[string]any{"timeout": h.pongTimeout.String()})
	h.onTimeout()
}

// pong cancels the current watchdog and reports the round trip. A slow
// pong is flagged, not fatal.
func (h *heartbeat) pong() {
	h.mu.Lock()
	if h.watchdog != nil {
		h.watchdog.Stop()
		h.watchdog = nil
	}
	rtt := time.Since(h.lastPing)
	h.mu.Unlock()

	if h.latencyWarn > 0 && rtt > h.latencyWarn {
		h.logger.Warn("high round-trip latency", map[string]any{"rtt": rtt.String()})
		if h.onLatency != nil {
			h.onLatency(rtt)
		}
	}
}

// pause suspends probing without tearing the monitor down, for
// backgrounded tabs where pings only burn battery and radio.
func (h *heartbeat) pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
	if h.watchdog != nil {
		h.watchdog.Stop()
		h.watchdog = nil
	}
}

// resume re-enables probing after a pause.
func (h *heartbeat) resume() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = false
}

// stop tears the monitor down and cancels any pending watchdog.
func (h *heartbeat) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done != nil {
		close(h.done)
		h.done = nil
	}
	if h.watchdog != nil {
		h.watchdog.Stop()
		h.watchdog = nil
	}
	h.paused = false
}
