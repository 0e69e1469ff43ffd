package rest

import "time"

// Authentication types

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse contains the bearer token returned after successful
// authentication. It is the token the realtime channel is opened with.
type TokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// User is the authenticated account identity.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Room types

// RoomType represents the type of a room.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypeDirect  RoomType = "direct"
)

// RoomInfo represents room metadata.
type RoomInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        RoomType  `json:"type"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        RoomType `json:"type,omitempty"` // defaults to "public"
}

// Message history types

// MessageInfo represents a single message in the history.
type MessageInfo struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessagesResponse contains a page of messages with pagination info.
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// Read receipt types

// ReadReceiptResponse acknowledges a reconciliation call.
type ReadReceiptResponse struct {
	RoomID      string `json:"room_id"`
	UnreadCount int    `json:"unread_count"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
