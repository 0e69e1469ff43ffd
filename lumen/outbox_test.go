package lumen

import (
	"testing"
	"time"
)

func TestOutboxLifecycle(t *testing.T) {
	o := NewOutbox()
	o.Track("tmp1", "hi", "u1")

	if st, _, ok := o.Status("tmp1"); !ok || st != StatusSending {
		t.Fatalf("expected sending, got %v ok=%v", st, ok)
	}

	o.MarkSent("tmp1")
	if st, _, _ := o.Status("tmp1"); st != StatusSent {
		t.Fatalf("expected sent, got %v", st)
	}

	// Resolved entries are never resurrected.
	o.MarkFailed("tmp1", "late failure")
	if st, reason, _ := o.Status("tmp1"); st != StatusSent || reason != "" {
		t.Fatalf("sent entry must stay sent, got %v %q", st, reason)
	}
}

func TestOutboxFailUntracked(t *testing.T) {
	o := NewOutbox()
	o.MarkFailed("ghost", "not connected")
	st, reason, ok := o.Status("ghost")
	if !ok || st != StatusFailed || reason != "not connected" {
		t.Fatalf("expected failed entry, got %v %q ok=%v", st, reason, ok)
	}
}

func TestOutboxMatchEcho(t *testing.T) {
	o := NewOutbox()
	o.Track("tmp1", "hello", "u1")
	o.MarkSent("tmp1")
	o.Track("tmp2", "other", "u1")
	o.MarkSent("tmp2")

	id, ok := o.MatchEcho("hello", "u1", time.Now(), 3*time.Second)
	if !ok || id != "tmp1" {
		t.Fatalf("expected tmp1, got %q ok=%v", id, ok)
	}

	if _, ok := o.MatchEcho("hello", "u2", time.Now(), 3*time.Second); ok {
		t.Fatal("author mismatch must not match")
	}
	if _, ok := o.MatchEcho("hello", "u1", time.Now().Add(time.Minute), 3*time.Second); ok {
		t.Fatal("echo outside the window must not match")
	}
}

func TestMessageStatusString(t *testing.T) {
	cases := map[MessageStatus]string{
		StatusSending: "sending",
		StatusSent:    "sent",
		StatusFailed:  "failed",
	}
	for st, want := range cases {
		if st.String() != want {
			t.Fatalf("got %q, want %q", st.String(), want)
		}
	}
}
