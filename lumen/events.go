package lumen

// Wire event kinds carried by the Frame type discriminator.
const (
	EventMessage                   = "message"
	EventUserJoined                = "user_joined"
	EventUserLeft                  = "user_left"
	EventRoomUsers                 = "room_users"
	EventWelcome                   = "welcome"
	EventMessageHistory            = "message_history"
	EventPong                      = "pong"
	EventNotification              = "notification"
	EventNotificationStatusChanged = "notification_status_changed"
	EventReadStatusResponse        = "read_status_response"
	EventRoomCreated               = "room_created"
	EventRoomDeleted               = "room_deleted"
	EventRoomUpdated               = "room_updated"
	EventError                     = "error"
)

// Locally synthesized event kinds, emitted on the same surface.
const (
	EventConnectionStateChanged = "connection_state_changed"
	EventReconnectFailed        = "reconnect_failed"
	EventReadStatusUpdated      = "read_status_updated"
	EventReadOperationFailed    = "read_operation_failed"
	EventNotificationSyncFailed = "notification_sync_failed"
	EventLatencyWarning         = "latency_warning"
)

// ReconnectFailedEvent is the payload of a terminal reconnect_failed.
type ReconnectFailedEvent struct {
	Attempts int
}

// LatencyEvent reports a round-trip above the configured threshold.
type LatencyEvent struct {
	RTTMillis int64
}

// OperationFailure is the payload of *_failed events surfaced instead
// of exceptions.
type OperationFailure struct {
	Operation string
	Reason    string
}
