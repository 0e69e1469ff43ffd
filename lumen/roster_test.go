package lumen

import (
	"testing"
	"time"
)

func TestRosterSnapshotIdempotent(t *testing.T) {
	r := NewRoster()
	snap := []RosterUser{{ID: "u1"}, {ID: "u2", Username: "bob"}}
	now := time.Now()

	r.ApplySnapshot(snap, now)
	first := r.Users()
	r.ApplySnapshot(snap, now)
	second := r.Users()

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 users, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("snapshot not idempotent: %+v vs %+v", first[i], second[i])
		}
	}
}

func TestRosterSnapshotMergesMetadata(t *testing.T) {
	r := NewRoster()
	r.Add(RosterUser{ID: "u1", Username: "alice"})

	// Snapshot without usernames must not destroy the name learned
	// from the earlier delta.
	r.ApplySnapshot([]RosterUser{{ID: "u1"}}, time.Now())

	users := r.Users()
	if len(users) != 1 || users[0].Username != "alice" || !users[0].IsActive {
		t.Fatalf("unexpected roster: %+v", users)
	}
}

func TestRosterSnapshotMarksAbsentInactive(t *testing.T) {
	r := NewRoster()
	r.Add(RosterUser{ID: "u1", Username: "alice"})
	r.Add(RosterUser{ID: "u2", Username: "bob"})

	r.ApplySnapshot([]RosterUser{{ID: "u2"}}, time.Now())

	users := r.Users()
	if len(users) != 2 {
		t.Fatalf("absent users must be kept, got %+v", users)
	}
	if users[0].ID != "u1" || users[0].IsActive {
		t.Fatalf("u1 should be inactive: %+v", users[0])
	}
	if !users[1].IsActive {
		t.Fatalf("u2 should be active: %+v", users[1])
	}
}

func TestRosterSnapshotWindow(t *testing.T) {
	r := NewRoster()
	now := time.Now()
	if r.SnapshotWithin(3*time.Second, now) {
		t.Fatal("no snapshot applied yet")
	}
	r.ApplySnapshot(nil, now)
	if !r.SnapshotWithin(3*time.Second, now.Add(time.Second)) {
		t.Fatal("snapshot 1s ago should be within a 3s window")
	}
	if r.SnapshotWithin(3*time.Second, now.Add(5*time.Second)) {
		t.Fatal("snapshot 5s ago should be outside a 3s window")
	}
}

func TestRosterAddReusesKnownUsername(t *testing.T) {
	r := NewRoster()
	r.Add(RosterUser{ID: "u1", Username: "alice"})
	r.Remove("u1")
	if r.Len() != 0 {
		t.Fatalf("expected empty roster, got %d", r.Len())
	}

	r.Add(RosterUser{ID: "u2", Username: "bob"})
	r.Add(RosterUser{ID: "u2"})
	users := r.Users()
	if users[0].Username != "bob" {
		t.Fatalf("rejoin lost username: %+v", users[0])
	}
}
