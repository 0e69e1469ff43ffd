package lumen

import (
	"sort"
	"sync"
	"time"
)

// Roster tracks who is present in the room. It is written only by the
// dispatcher handlers; everyone else reads copies.
type Roster struct {
	mu           sync.Mutex
	users        map[string]RosterUser
	lastSnapshot time.Time
}

// NewRoster constructs an empty roster.
func NewRoster() *Roster {
	return &Roster{users: make(map[string]RosterUser)}
}

// Add inserts or reactivates a single user from a join delta.
func (r *Roster) Add(u RosterUser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if ok && u.Username == "" {
		u.Username = cur.Username
	}
	u.IsActive = true
	r.users[u.ID] = u
}

// Remove drops a user from the roster by id.
func (r *Roster) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// ApplySnapshot merges a full room_users snapshot. The snapshot is
// authoritative for who is online right now, but metadata learned from
// prior deltas survives: users absent from the snapshot are marked
// inactive, never deleted.
func (r *Roster) ApplySnapshot(users []RosterUser, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	present := make(map[string]struct{}, len(users))
	for _, u := range users {
		present[u.ID] = struct{}{}
		cur, ok := r.users[u.ID]
		if ok && u.Username == "" {
			u.Username = cur.Username
		}
		u.IsActive = true
		r.users[u.ID] = u
	}
	for id, u := range r.users {
		if _, ok := present[id]; !ok {
			u.IsActive = false
			r.users[id] = u
		}
	}
	r.lastSnapshot = now
}

// SnapshotWithin reports whether a full snapshot was applied within the
// given window before now. Join deltas inside the window skip roster
// mutation because the snapshot already reflects them.
func (r *Roster) SnapshotWithin(window time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.lastSnapshot.IsZero() && now.Sub(r.lastSnapshot) < window
}

// Users returns a copy of the roster, ordered by id.
func (r *Roster) Users() []RosterUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RosterUser, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the roster size.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Clear empties the roster and forgets the snapshot time.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[string]RosterUser)
	r.lastSnapshot = time.Time{}
}
