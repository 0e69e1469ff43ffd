package lumen

import "time"

// dispatcher parses inbound frames and routes each kind to its
// handler, then re-emits the raw (type, body) pair on the bus so
// external subscribers can listen without the dispatcher knowing them.
//
// Nothing in here throws across the event boundary: a malformed frame
// is logged and dropped, a failed store mutation becomes a named
// *_failed event.
type dispatcher struct {
	logger        Logger
	bus           *Bus
	roster        *Roster
	outbox        *Outbox
	messages      MessageStore
	notifications NotificationStore
	auth          AuthProvider
	dedupWindow   time.Duration
	now           func() time.Time
	onPong        func()
}

func (d *dispatcher) handleRaw(raw []byte) {
	f, err := ParseFrame(raw)
	if err != nil {
		d.logger.Warn("dropping malformed frame", map[string]any{"error": err.Error()})
		return
	}
	if f.Type == "" {
		d.logger.Warn("dropping frame without type", nil)
		return
	}
	d.handle(f)
}

func (d *dispatcher) handle(f Frame) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic", map[string]any{"type": f.Type, "panic": r})
		}
	}()

	switch f.Type {
	case EventMessage:
		d.handleMessage(f)
	case EventUserJoined:
		d.handleUserJoined(f)
	case EventUserLeft:
		d.handleUserLeft(f)
	case EventRoomUsers:
		d.handleRoomUsers(f)
	case EventWelcome:
		d.handleWelcome(f)
	case EventMessageHistory:
		d.handleHistory(f)
	case EventPong:
		if d.onPong != nil {
			d.onPong()
		}
	case EventNotification:
		d.handleNotification(f)
	case EventNotificationStatusChanged:
		d.handleNotificationStatus(f)
	case EventReadStatusResponse:
		d.handleReadStatus(f)
	case EventRoomCreated, EventRoomDeleted, EventRoomUpdated:
		// Room lifecycle is projected by the sync adapters off the
		// generic surface; no built-in mutation here.
	case EventError:
		d.handleError(f)
	default:
		d.logger.Debug("unrecognized event type", map[string]any{"type": f.Type})
	}

	// Unconditional raw re-emit, including unrecognized kinds.
	d.bus.Emit(f.Type, f.Body())
}

func (d *dispatcher) currentUserID() string {
	if d.auth == nil {
		return ""
	}
	u, ok := d.auth.CurrentUser()
	if !ok {
		return ""
	}
	return u.ID
}

func (d *dispatcher) handleMessage(f Frame) {
	var m Message
	if err := f.DecodeBody(&m); err != nil {
		d.logger.Warn("bad message body", map[string]any{"error": err.Error()})
		return
	}
	d.messages.Append(m)
	// A server echo carrying our temp id resolves the provisional copy.
	if m.TempID != "" && m.UserID == d.currentUserID() {
		d.outbox.MarkSent(m.TempID)
	}
}

func (d *dispatcher) handleUserJoined(f Frame) {
	var ev UserEvent
	if err := f.DecodeBody(&ev); err != nil {
		d.logger.Warn("bad user_joined body", map[string]any{"error": err.Error()})
		return
	}
	if ev.UserID == d.currentUserID() && ev.UserID != "" {
		return
	}
	// A recent full snapshot already reflects this join; mutating the
	// roster again would double-count it.
	if !d.roster.SnapshotWithin(d.dedupWindow, d.now()) {
		d.roster.Add(RosterUser{ID: ev.UserID, Username: ev.Username})
	}
	d.appendSystemMessage(ev, " joined the room")
}

func (d *dispatcher) handleUserLeft(f Frame) {
	var ev UserEvent
	if err := f.DecodeBody(&ev); err != nil {
		d.logger.Warn("bad user_left body", map[string]any{"error": err.Error()})
		return
	}
	d.roster.Remove(ev.UserID)
	d.appendSystemMessage(ev, " left the room")
}

// appendSystemMessage synthesizes a system message for a join/leave
// delta, but only when the server supplied the event timestamp. The
// client never fabricates one: clock authority is the server's.
func (d *dispatcher) appendSystemMessage(ev UserEvent, suffix string) {
	if ev.Timestamp == nil {
		return
	}
	name := ev.Username
	if name == "" {
		name = ev.UserID
	}
	d.messages.Append(Message{
		UserID:      ev.UserID,
		Username:    ev.Username,
		Content:     name + suffix,
		MessageType: MessageTypeSystem,
		Timestamp:   ev.Timestamp,
	})
}

func (d *dispatcher) handleRoomUsers(f Frame) {
	var snap rosterSnapshot
	if err := f.DecodeBody(&snap); err != nil {
		d.logger.Warn("bad room_users body", map[string]any{"error": err.Error()})
		return
	}
	d.roster.ApplySnapshot(snap.Users, d.now())
}

func (d *dispatcher) handleWelcome(f Frame) {
	var w welcomePayload
	if err := f.DecodeBody(&w); err != nil {
		d.logger.Warn("bad welcome body", map[string]any{"error": err.Error()})
		return
	}
	if len(w.Users) > 0 {
		d.roster.ApplySnapshot(w.Users, d.now())
	}
	if len(w.Messages) > 0 {
		d.messages.SetHistory(dropSystemMessages(w.Messages))
	}
	d.logger.Info("welcome received", map[string]any{"user": w.User.ID})
}

func (d *dispatcher) handleHistory(f Frame) {
	var h historyPayload
	if err := f.DecodeBody(&h); err != nil {
		d.logger.Warn("bad message_history body", map[string]any{"error": err.Error()})
		return
	}
	d.messages.SetHistory(dropSystemMessages(h.Messages))
}

// dropSystemMessages filters synthetic system entries out of replayed
// history; those are reconstructed live from join/leave deltas.
func dropSystemMessages(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.MessageType == MessageTypeSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (d *dispatcher) handleNotification(f Frame) {
	var n Notification
	if err := f.DecodeBody(&n); err != nil {
		d.logger.Warn("bad notification body", map[string]any{"error": err.Error()})
		return
	}
	// A room_created marker nested inside a notification belongs to the
	// room lifecycle surface, not the user notification store.
	if n.Type == EventRoomCreated {
		d.bus.Emit(EventRoomCreated, n.Data)
		return
	}
	if n.Title == "" || n.Message == "" {
		d.logger.Warn("dropping notification without title or message", map[string]any{"id": n.ID})
		return
	}
	if d.notifications == nil {
		return
	}
	if err := d.notifications.AddNotification(n); err != nil {
		d.bus.Emit(EventNotificationSyncFailed, OperationFailure{Operation: "add_notification", Reason: err.Error()})
	}
}

func (d *dispatcher) handleNotificationStatus(f Frame) {
	var st notificationStatus
	if err := f.DecodeBody(&st); err != nil {
		d.logger.Warn("bad notification_status_changed body", map[string]any{"error": err.Error()})
		return
	}
	if st.Status != "read" || d.notifications == nil {
		return
	}
	if err := d.notifications.MarkAsRead(st.NotificationID); err != nil {
		d.bus.Emit(EventNotificationSyncFailed, OperationFailure{Operation: "mark_read", Reason: err.Error()})
	}
}

func (d *dispatcher) handleReadStatus(f Frame) {
	var rs ReadStatus
	if err := f.DecodeBody(&rs); err != nil {
		d.bus.Emit(EventReadOperationFailed, OperationFailure{Operation: "read_status", Reason: err.Error()})
		return
	}
	if rs.Status == "" {
		d.bus.Emit(EventReadOperationFailed, OperationFailure{Operation: "read_status", Reason: "missing status"})
		return
	}
	d.bus.Emit(EventReadStatusUpdated, rs)
}

func (d *dispatcher) handleError(f Frame) {
	var we WireError
	if err := f.DecodeBody(&we); err != nil {
		d.logger.Warn("bad error body", map[string]any{"error": err.Error()})
		return
	}
	if we.TempID != "" {
		d.outbox.MarkFailed(we.TempID, we.Message)
	}
	d.logger.Warn("server error frame", map[string]any{"code": we.Code, "message": we.Message})
}
