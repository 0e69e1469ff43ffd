package lumen

import "time"

// Config controls how the SDK connects and recovers.
type Config struct {
	// BaseURL is the server origin, e.g. "wss://chat.example.com".
	// The room channel is opened at BaseURL + "/ws/{roomID}?token={token}".
	BaseURL string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables; liveness is the heartbeat's job
	WriteTimeout     time.Duration

	AutoReconnect     bool
	ReconnectInterval time.Duration // base delay before doubling
	MaxReconnectDelay time.Duration
	MaxReconnectTries int

	HeartbeatInterval time.Duration
	PongTimeout       time.Duration
	LatencyWarning    time.Duration

	// SnapshotDedupWindow suppresses roster mutation from a user_joined
	// arriving just after a full room_users snapshot.
	SnapshotDedupWindow time.Duration

	// ReadCacheTTL bounds how long a mark-room-read request suppresses
	// duplicates for the same room.
	ReadCacheTTL time.Duration

	// EchoMatchWindow is the timestamp proximity used when reconciling
	// a rebroadcast message against a provisional local copy.
	EchoMatchWindow time.Duration

	// ConnectThrottle refuses a connect issued this soon after the
	// previous one while a reconnection is in progress.
	ConnectThrottle time.Duration

	// IdentityClearDelay is the grace period before Disconnect forgets
	// the room/token pair.
	IdentityClearDelay time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        10 * time.Second,
		AutoReconnect:       true,
		ReconnectInterval:   time.Second,
		MaxReconnectDelay:   30 * time.Second,
		MaxReconnectTries:   10,
		HeartbeatInterval:   20 * time.Second,
		PongTimeout:         10 * time.Second,
		LatencyWarning:      5 * time.Second,
		SnapshotDedupWindow: 3 * time.Second,
		ReadCacheTTL:        5 * time.Second,
		EchoMatchWindow:     5 * time.Second,
		ConnectThrottle:     500 * time.Millisecond,
		IdentityClearDelay:  250 * time.Millisecond,
	}
}
