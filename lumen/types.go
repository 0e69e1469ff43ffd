package lumen

import (
	"encoding/json"
	"time"
)

// Frame is the envelope server -> client. The canonical body key is
// "payload"; older servers put it under "data" or inline the body
// beside "type", so all three shapes are accepted and normalized here,
// at the parse boundary, and nowhere else.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Raw is the whole frame, kept for events that inline their body.
	Raw json.RawMessage `json:"-"`
}

// ParseFrame decodes one wire frame.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, WrapError(ErrorSerialization, "decode frame", err)
	}
	f.Raw = json.RawMessage(raw)
	return f, nil
}

// Body returns the frame body regardless of which wire shape carried it.
func (f Frame) Body() json.RawMessage {
	if len(f.Payload) > 0 {
		return f.Payload
	}
	if len(f.Data) > 0 {
		return f.Data
	}
	return f.Raw
}

// DecodeBody unmarshals the frame body into v.
func (f Frame) DecodeBody(v any) error {
	body := f.Body()
	if len(body) == 0 {
		return NewError(ErrorSerialization, "frame has no body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return WrapError(ErrorSerialization, "decode "+f.Type+" body", err)
	}
	return nil
}

// messageCommand is the outbound frame for a chat message.
type messageCommand struct {
	Type        string         `json:"type"`
	Content     string         `json:"content"`
	MessageType string         `json:"message_type"`
	TempID      string         `json:"temp_id,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

// pingCommand is the outbound liveness probe.
type pingCommand struct {
	Type string `json:"type"`
}

// ReadType selects the scope of a notification_read command.
type ReadType string

const (
	ReadTypeNotification ReadType = "notification"
	ReadTypeRoom         ReadType = "room"
	ReadTypeAll          ReadType = "all"
)

// readCommand is the outbound frame marking notifications read.
type readCommand struct {
	Type           string   `json:"type"`
	NotificationID string   `json:"notification_id,omitempty"`
	ReadType       ReadType `json:"read_type"`
	TargetRoomID   string   `json:"target_room_id,omitempty"`
}

// User identifies the authenticated account, supplied by the host
// application's auth layer.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// AuthProvider supplies the current user identity. The SDK only
// consumes it; token refresh is the host application's concern.
type AuthProvider interface {
	CurrentUser() (User, bool)
}

// Message is a chat message, live or replayed from history.
type Message struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id,omitempty"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	Content     string     `json:"content"`
	MessageType string     `json:"message_type,omitempty"` // "text", "image", "system", ...
	TempID      string     `json:"temp_id,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// MessageTypeSystem marks messages synthesized from join/leave events.
// They are never replayed from history; the live handlers rebuild them.
const MessageTypeSystem = "system"

// RosterUser is one entry in the room presence set.
type RosterUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	IsActive bool   `json:"is_active"`
}

// UserEvent is the body of user_joined / user_left frames. Timestamp is
// optional; the client never fabricates one, the server owns the clock.
type UserEvent struct {
	UserID    string     `json:"user_id"`
	Username  string     `json:"username,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// rosterSnapshot is the body of a room_users frame.
type rosterSnapshot struct {
	Users []RosterUser `json:"users"`
}

// welcomePayload is the body of the welcome frame sent on join.
type welcomePayload struct {
	User     User         `json:"user"`
	Users    []RosterUser `json:"users,omitempty"`
	Messages []Message    `json:"messages,omitempty"`
}

// historyPayload is the body of a message_history frame.
type historyPayload struct {
	Messages []Message `json:"messages"`
}

// Notification is a user-visible notification event.
type Notification struct {
	ID      string          `json:"id"`
	Type    string          `json:"type,omitempty"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	RoomID  string          `json:"room_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Read    bool            `json:"read,omitempty"`
}

// notificationStatus is the body of a notification_status_changed frame.
type notificationStatus struct {
	NotificationID string `json:"notification_id"`
	Status         string `json:"status"`
}

// ReadStatus is the body of read_status_response frames and of the
// read_status_updated events projected from them.
type ReadStatus struct {
	Status         string   `json:"status"`
	ReadType       ReadType `json:"read_type"`
	NotificationID string   `json:"notification_id,omitempty"`
	RoomID         string   `json:"room_id,omitempty"`
}

// RoomInfo is room metadata carried by room lifecycle events.
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
}

// WireError is the body of an error frame.
type WireError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}

func (e *WireError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
