package lumen

import (
	"math/rand"
	"sync"
	"time"
)

// reconnector decides whether, when, and with what delay a dropped
// connection is re-established. Delays grow geometrically with a
// bounded jitter and a bounded attempt budget; the budget resets on a
// successful connection, an explicit disconnect, or a network-online
// signal.
type reconnector struct {
	base     time.Duration
	max      time.Duration
	maxTries int
	logger   Logger

	// attempt performs one redial; shouldRetry gates rescheduling after
	// a failed attempt; onExhausted fires once when the budget runs out.
	attempt     func() error
	shouldRetry func() bool
	onExhausted func(attempts int)

	mu        sync.Mutex
	attempts  int
	delay     time.Duration
	timer     *time.Timer
	active    bool // a reconnection is scheduled or attempting
	exhausted bool
}

func newReconnector(cfg Config, logger Logger) *reconnector {
	return &reconnector{
		base:     cfg.ReconnectInterval,
		max:      cfg.MaxReconnectDelay,
		maxTries: cfg.MaxReconnectTries,
		logger:   logger,
		delay:    cfg.ReconnectInterval,
	}
}

// backoffStep computes the jittered wait for the current delay and the
// doubled (capped) delay for the next schedule. The stored delay grows
// independently of the jittered value actually waited.
func backoffStep(cur, max time.Duration) (wait, next time.Duration) {
	jitter := rand.Float64() * 0.3
	wait = time.Duration(float64(cur) * (1 + jitter))
	if wait > max {
		wait = max
	}
	next = cur * 2
	if next > max {
		next = max
	}
	return wait, next
}

// schedule arms one reconnection attempt after the current backoff
// delay. Duplicate triggers while an attempt is scheduled or in flight
// are ignored.
func (r *reconnector) schedule() {
	r.mu.Lock()
	if r.active || r.exhausted {
		r.mu.Unlock()
		return
	}
	if r.maxTries > 0 && r.attempts >= r.maxTries {
		r.exhausted = true
		attempts := r.attempts
		r.mu.Unlock()
		r.logger.Warn("reconnect budget exhausted", map[string]any{"attempts": attempts})
		if r.onExhausted != nil {
			r.onExhausted(attempts)
		}
		return
	}
	wait, next := backoffStep(r.delay, r.max)
	r.delay = next
	r.attempts++
	r.active = true
	attempt := r.attempts
	r.timer = time.AfterFunc(wait, r.run)
	r.mu.Unlock()
	r.logger.Info("reconnect scheduled", map[string]any{"attempt": attempt, "wait": wait.String()})
}

// scheduleNow arms an immediate attempt, used by the online and
// visibility re-arm triggers.
func (r *reconnector) scheduleNow() {
	r.mu.Lock()
	if r.active || r.exhausted {
		r.mu.Unlock()
		return
	}
	r.attempts++
	r.active = true
	r.timer = time.AfterFunc(0, r.run)
	r.mu.Unlock()
}

func (r *reconnector) run() {
	err := r.attempt()
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()
	if err == nil {
		return
	}
	r.logger.Warn("reconnect attempt failed", map[string]any{"error": err.Error()})
	if r.shouldRetry == nil || r.shouldRetry() {
		r.schedule()
	}
}

// isReconnecting reports whether an attempt is scheduled or in flight.
func (r *reconnector) isReconnecting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// onConnected resets the budget and delay after a successful
// connection.
func (r *reconnector) onConnected() {
	r.reset()
}

// reset cancels any pending attempt and restores initial counters.
func (r *reconnector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.active = false
	r.attempts = 0
	r.delay = r.base
	r.exhausted = false
}

// rearm restores the budget without cancelling an in-flight attempt,
// for the network-online transition.
func (r *reconnector) rearm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = 0
	r.delay = r.base
	r.exhausted = false
}
