package lumen

import "sync"

// The SDK mutates external state only through these collaborator
// interfaces and never depends on their internal representation.

// MessageStore receives chat messages, live and replayed.
type MessageStore interface {
	Append(m Message)
	SetHistory(msgs []Message)
}

// NotificationStore receives notifications and read-status projections.
type NotificationStore interface {
	AddNotification(n Notification) error
	MarkAsRead(notificationID string) error
	MarkAllAsRead() error
}

// RoomListStore receives room lifecycle projections.
type RoomListStore interface {
	AddNewRoom(room RoomInfo) error
	RemoveRoom(roomID string) error
	UpdateRoom(room RoomInfo) error
}

// MemoryMessageStore is a trivial in-memory MessageStore, handy for
// examples and tests.
type MemoryMessageStore struct {
	mu   sync.Mutex
	msgs []Message
}

func (s *MemoryMessageStore) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
}

func (s *MemoryMessageStore) SetHistory(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append([]Message(nil), msgs...)
}

// Messages returns a copy of the stored messages in order.
func (s *MemoryMessageStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

// MemoryNotificationStore is a trivial in-memory NotificationStore.
type MemoryNotificationStore struct {
	mu    sync.Mutex
	items map[string]Notification
}

func (s *MemoryNotificationStore) AddNotification(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string]Notification)
	}
	s.items[n.ID] = n
	return nil
}

func (s *MemoryNotificationStore) MarkAsRead(notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[notificationID]
	if !ok {
		return NewError(ErrorUnknown, "unknown notification "+notificationID)
	}
	n.Read = true
	s.items[notificationID] = n
	return nil
}

func (s *MemoryNotificationStore) MarkAllAsRead() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.items {
		n.Read = true
		s.items[id] = n
	}
	return nil
}

// Notifications returns a copy of the stored notifications.
func (s *MemoryNotificationStore) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		out = append(out, n)
	}
	return out
}

// MemoryRoomListStore is a trivial in-memory RoomListStore.
type MemoryRoomListStore struct {
	mu    sync.Mutex
	rooms map[string]RoomInfo
}

func (s *MemoryRoomListStore) AddNewRoom(room RoomInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms == nil {
		s.rooms = make(map[string]RoomInfo)
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *MemoryRoomListStore) RemoveRoom(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *MemoryRoomListStore) UpdateRoom(room RoomInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms == nil {
		s.rooms = make(map[string]RoomInfo)
	}
	s.rooms[room.ID] = room
	return nil
}

// Rooms returns a copy of the room list.
func (s *MemoryRoomListStore) Rooms() []RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}
