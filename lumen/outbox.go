package lumen

import (
	"sync"
	"time"
)

// MessageStatus is the local delivery status of an outbound message.
type MessageStatus int

const (
	StatusSending MessageStatus = iota
	StatusSent
	StatusFailed
)

// String returns the string representation of a MessageStatus.
func (s MessageStatus) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type outboxEntry struct {
	status  MessageStatus
	reason  string
	content string
	author  string
	sentAt  time.Time
}

// Outbox tracks delivery status for messages this client sent, keyed
// by the client-generated temp id. Entries are resolved once and never
// resurrected.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*outboxEntry
}

// NewOutbox constructs an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*outboxEntry)}
}

// Track records a send in flight. A temp id already resolved keeps its
// terminal status.
func (o *Outbox) Track(tempID, content, author string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.entries[tempID]; ok {
		return
	}
	o.entries[tempID] = &outboxEntry{status: StatusSending, content: content, author: author}
}

// MarkSent resolves a pending entry as transmitted.
func (o *Outbox) MarkSent(tempID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[tempID]
	if !ok || e.status != StatusSending {
		return
	}
	e.status = StatusSent
	e.sentAt = time.Now()
}

// MarkFailed resolves an entry as failed with the given reason. A temp
// id never tracked still gets a failed entry so callers can attach the
// failure to the right message bubble.
func (o *Outbox) MarkFailed(tempID, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[tempID]
	if !ok {
		o.entries[tempID] = &outboxEntry{status: StatusFailed, reason: reason}
		return
	}
	if e.status != StatusSending {
		return
	}
	e.status = StatusFailed
	e.reason = reason
}

// Status reports the delivery status for a temp id.
func (o *Outbox) Status(tempID string) (MessageStatus, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[tempID]
	if !ok {
		return 0, "", false
	}
	return e.status, e.reason, true
}

// MatchEcho finds the provisional copy a rebroadcast message most
// likely corresponds to, for servers that do not echo temp ids. The
// match is content + author + timestamp proximity, closest first.
// Known limitation: rapid duplicate sends of identical content can
// false-match; prefer a server-echoed temp id whenever available.
func (o *Outbox) MatchEcho(content, author string, ts time.Time, window time.Duration) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var best string
	var bestDelta time.Duration
	for id, e := range o.entries {
		if e.status != StatusSent || e.content != content || e.author != author {
			continue
		}
		delta := ts.Sub(e.sentAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > window {
			continue
		}
		if best == "" || delta < bestDelta {
			best, bestDelta = id, delta
		}
	}
	return best, best != ""
}

// Clear drops every entry.
func (o *Outbox) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[string]*outboxEntry)
}
