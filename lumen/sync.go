package lumen

import (
	"encoding/json"
	"sync"
)

// The synchronization adapters subscribe to the generic event surface
// and project specific event kinds into external stores, so the
// dispatcher never needs to know about either store. Both adapters are
// idempotent: Setup on an active adapter and Cleanup on an inactive
// one are no-ops, because UI mount/unmount cycles may call them more
// than once.

type subRef struct {
	event string
	token int
}

// decodeAs unmarshals a bus payload — a raw wire body or an already
// typed value — into v.
func decodeAs[T any](payload any) (T, bool) {
	if v, ok := payload.(T); ok {
		return v, true
	}
	var v T
	if raw, ok := payload.(json.RawMessage); ok {
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true
		}
	}
	return v, false
}

// ReadStatusSync projects read-status events into a notification
// store. Failures surface through the logger, never as a panic or an
// error return across the event boundary.
type ReadStatusSync struct {
	client *Client
	store  NotificationStore
	logger Logger

	mu     sync.Mutex
	subs   []subRef
	active bool
}

// NewReadStatusSync constructs the adapter; call Setup to activate it.
func NewReadStatusSync(client *Client, store NotificationStore) *ReadStatusSync {
	return &ReadStatusSync{client: client, store: store, logger: client.logger}
}

// Setup registers the adapter's subscriptions. No-op if already set up.
func (s *ReadStatusSync) Setup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.subs = append(s.subs,
		subRef{EventReadStatusUpdated, s.client.On(EventReadStatusUpdated, s.onUpdated)},
		subRef{EventReadOperationFailed, s.client.On(EventReadOperationFailed, s.onFailed)},
	)
}

// Cleanup unregisters everything. Safe to call twice.
func (s *ReadStatusSync) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	for _, ref := range s.subs {
		s.client.Off(ref.event, ref.token)
	}
	s.subs = nil
	s.active = false
}

func (s *ReadStatusSync) onUpdated(payload any) {
	rs, ok := decodeAs[ReadStatus](payload)
	if !ok {
		s.logger.Warn("read status sync: undecodable payload", nil)
		return
	}
	if rs.Status != "read" {
		return
	}
	var err error
	switch rs.ReadType {
	case ReadTypeNotification:
		err = s.store.MarkAsRead(rs.NotificationID)
	case ReadTypeAll:
		err = s.store.MarkAllAsRead()
	case ReadTypeRoom:
		// Room-scope reconciliation goes through the REST fallback at
		// the UI layer; there is nothing to project here.
		return
	}
	if err != nil {
		s.logger.Warn("read status sync failed", map[string]any{"error": err.Error()})
	}
}

func (s *ReadStatusSync) onFailed(payload any) {
	f, ok := decodeAs[OperationFailure](payload)
	if !ok {
		s.logger.Warn("read operation failed", nil)
		return
	}
	s.logger.Warn("read operation failed", map[string]any{
		"operation": f.Operation,
		"reason":    f.Reason,
	})
}

// RoomListSync projects room lifecycle events into a room-list store,
// and re-registers its data subscriptions after every reconnect so it
// never silently goes deaf.
type RoomListSync struct {
	client *Client
	store  RoomListStore
	logger Logger

	mu       sync.Mutex
	dataSubs []subRef
	stateSub int
	active   bool
}

// NewRoomListSync constructs the adapter; call Setup to activate it.
func NewRoomListSync(client *Client, store RoomListStore) *RoomListSync {
	return &RoomListSync{client: client, store: store, logger: client.logger}
}

// Setup registers the adapter's subscriptions. No-op if already set up.
func (s *RoomListSync) Setup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.subscribeDataLocked()
	s.stateSub = s.client.On(EventConnectionStateChanged, func(p any) {
		ev, ok := p.(StateEvent)
		if !ok || ev.NewState != StateConnected {
			return
		}
		s.resubscribe()
	})
}

// Cleanup unregisters everything. Safe to call twice.
func (s *RoomListSync) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.unsubscribeDataLocked()
	s.client.Off(EventConnectionStateChanged, s.stateSub)
	s.active = false
}

func (s *RoomListSync) subscribeDataLocked() {
	s.dataSubs = append(s.dataSubs,
		subRef{EventRoomCreated, s.client.On(EventRoomCreated, s.onRoom(s.store.AddNewRoom))},
		subRef{EventRoomUpdated, s.client.On(EventRoomUpdated, s.onRoom(s.store.UpdateRoom))},
		subRef{EventRoomDeleted, s.client.On(EventRoomDeleted, s.onRoomDeleted)},
	)
}

func (s *RoomListSync) unsubscribeDataLocked() {
	for _, ref := range s.dataSubs {
		s.client.Off(ref.event, ref.token)
	}
	s.dataSubs = nil
}

func (s *RoomListSync) resubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.unsubscribeDataLocked()
	s.subscribeDataLocked()
}

func (s *RoomListSync) onRoom(mutate func(RoomInfo) error) func(any) {
	return func(payload any) {
		room, ok := decodeAs[RoomInfo](payload)
		if !ok || room.ID == "" {
			s.logger.Warn("room list sync: undecodable payload", nil)
			return
		}
		if err := mutate(room); err != nil {
			s.logger.Warn("room list sync failed", map[string]any{"room": room.ID, "error": err.Error()})
		}
	}
}

func (s *RoomListSync) onRoomDeleted(payload any) {
	room, ok := decodeAs[RoomInfo](payload)
	if !ok || room.ID == "" {
		s.logger.Warn("room list sync: undecodable payload", nil)
		return
	}
	if err := s.store.RemoveRoom(room.ID); err != nil {
		s.logger.Warn("room list sync failed", map[string]any{"room": room.ID, "error": err.Error()})
	}
}
