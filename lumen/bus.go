package lumen

import "sync"

// Bus is the generic event surface. Every wire frame is re-emitted
// here under its type discriminator, alongside locally synthesized
// events, so consumers can either rely on built-in side effects or
// listen raw.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]func(any)
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(any))}
}

// On registers fn for the given event kind and returns a subscription
// token for Off.
func (b *Bus) On(event string, fn func(any)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	if b.subs[event] == nil {
		b.subs[event] = make(map[int]func(any))
	}
	b.subs[event][b.next] = fn
	return b.next
}

// Off removes a subscription. Unknown tokens are ignored.
func (b *Bus) Off(event string, token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m := b.subs[event]; m != nil {
		delete(m, token)
		if len(m) == 0 {
			delete(b.subs, event)
		}
	}
}

// Emit delivers payload to every subscriber of event. Handlers run on
// the caller's goroutine, outside the registry lock, so a handler may
// subscribe or unsubscribe freely.
func (b *Bus) Emit(event string, payload any) {
	b.mu.RLock()
	fns := make([]func(any), 0, len(b.subs[event]))
	for _, fn := range b.subs[event] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(payload)
	}
}

// Clear drops every registration.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[int]func(any))
}
