package lumen

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/lumenchat/lumen-sdk-go/lumen/internal"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// transport is the full-duplex channel carrying frames. It is owned
// exclusively by the Client; external code reaches it only through
// SendMessage and friends.
type transport interface {
	ReadRaw(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, v any) error
	Close(code websocket.StatusCode, reason string) error
}

type dialFunc func(ctx context.Context, url string) (transport, error)

// Client is the real-time connection manager: it establishes,
// maintains, and recovers one logical room channel, and turns the
// inbound frame stream into consistent local state transitions.
type Client struct {
	cfg    Config
	logger Logger
	dial   dialFunc

	bus       *Bus
	outbox    *Outbox
	roster    *Roster
	readCache *readCache
	heartbeat *heartbeat
	reconnect *reconnector
	disp      *dispatcher

	auth AuthProvider

	mu            sync.Mutex
	state         ConnectionState
	epoch         uint64 // connection attempt token; bumped on every connect/disconnect
	closedEpoch   uint64 // highest epoch whose closure was already handled
	conn          transport
	readCancel    context.CancelFunc
	roomID        string
	token         string
	identityTimer *time.Timer
	lastConnect   time.Time
	wantConnected bool
	closed        bool
}

// NewClient constructs a client with the provided config. Use
// DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:       cfg,
		logger:    noopLogger{},
		bus:       NewBus(),
		outbox:    NewOutbox(),
		roster:    NewRoster(),
		readCache: newReadCache(cfg.ReadCacheTTL),
	}
	c.dial = c.dialWebsocket

	c.heartbeat = newHeartbeat(cfg, c.logger)
	c.heartbeat.sendPing = c.sendPing
	c.heartbeat.onTimeout = c.onLivenessTimeout
	c.heartbeat.onLatency = func(rtt time.Duration) {
		c.bus.Emit(EventLatencyWarning, LatencyEvent{RTTMillis: rtt.Milliseconds()})
	}

	c.reconnect = newReconnector(cfg, c.logger)
	c.reconnect.attempt = c.reconnectAttempt
	c.reconnect.shouldRetry = c.canReconnect
	c.reconnect.onExhausted = func(attempts int) {
		c.bus.Emit(EventReconnectFailed, ReconnectFailedEvent{Attempts: attempts})
	}

	c.disp = &dispatcher{
		logger:      c.logger,
		bus:         c.bus,
		roster:      c.roster,
		outbox:      c.outbox,
		messages:    &MemoryMessageStore{},
		dedupWindow: cfg.SnapshotDedupWindow,
		now:         time.Now,
		onPong:      func() { c.heartbeat.pong() },
	}
	return c
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.heartbeat.logger = l
	c.reconnect.logger = l
	c.disp.logger = l
}

// SetMessageStore routes chat messages into the given store.
func (c *Client) SetMessageStore(s MessageStore) {
	if s != nil {
		c.disp.messages = s
	}
}

// SetNotificationStore routes notifications into the given store.
func (c *Client) SetNotificationStore(s NotificationStore) {
	c.disp.notifications = s
}

// SetAuthProvider supplies the current-user identity used to open the
// channel and to self-filter join events.
func (c *Client) SetAuthProvider(p AuthProvider) {
	c.auth = p
	c.disp.auth = p
}

// On subscribes fn to an event kind on the generic event surface and
// returns a token for Off.
func (c *Client) On(event string, fn func(any)) int { return c.bus.On(event, fn) }

// Off removes a subscription made with On.
func (c *Client) Off(event string, token int) { c.bus.Off(event, token) }

// OnStateChanged subscribes to connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) int {
	return c.bus.On(EventConnectionStateChanged, func(p any) {
		if ev, ok := p.(StateEvent); ok {
			fn(ev)
		}
	})
}

// NewTempID returns a fresh client-generated correlation id.
func NewTempID() string { return uuid.NewString() }

// Connect opens the room channel. It returns once the transport is
// open and this attempt is still current, or with an error on dial
// failure, handshake timeout, or supersession by a newer connect.
func (c *Client) Connect(ctx context.Context, roomID, token string) error {
	return c.connectInternal(ctx, roomID, token, false)
}

func (c *Client) connectInternal(ctx context.Context, roomID, token string, isReconnect bool) error {
	if c.cfg.BaseURL == "" {
		return NewError(ErrorInvalidConfig, "empty BaseURL")
	}
	if roomID == "" {
		return NewError(ErrorInvalidConfig, "empty room id")
	}

	reconnecting := c.reconnect.isReconnecting()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorDisconnected, "client closed")
	}
	if c.state == StateConnected {
		c.mu.Unlock()
		return NewError(ErrorConnection, "already connected")
	}
	// A scheduled attempt never preempts an explicit connect that is
	// still settling; an explicit connect, however, supersedes a
	// settling one via the epoch bump below.
	if isReconnect && c.state != StateDisconnected {
		c.mu.Unlock()
		return NewError(ErrorConnection, "connect already in progress")
	}
	// Anti-flood guard: while a reconnection is in progress, a connect
	// issued right after the previous one is refused. Explicit connects
	// are otherwise never throttled.
	if !isReconnect && reconnecting && !c.lastConnect.IsZero() &&
		time.Since(c.lastConnect) < c.cfg.ConnectThrottle {
		c.mu.Unlock()
		return NewError(ErrorThrottled, "connect issued too soon after previous attempt")
	}
	c.lastConnect = time.Now()
	c.epoch++
	epoch := c.epoch
	if c.identityTimer != nil {
		c.identityTimer.Stop()
		c.identityTimer = nil
	}
	c.roomID, c.token = roomID, token
	c.wantConnected = true
	ev := c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()
	c.emitState(ev)

	if !isReconnect {
		// A user-initiated connect re-arms the retry budget.
		c.reconnect.reset()
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	t, err := c.dial(dialCtx, c.wsURL(roomID, token))
	if err != nil {
		c.mu.Lock()
		superseded := c.epoch != epoch
		var ev *StateEvent
		if !superseded {
			ev = c.setStateLocked(StateDisconnected, err)
		}
		c.mu.Unlock()
		c.emitState(ev)
		if superseded {
			return NewError(ErrorSuperseded, "connect superseded")
		}
		if dialCtx.Err() != nil && errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return WrapError(ErrorTimeout, "connect timed out", err)
		}
		return WrapError(ErrorConnection, "dial failed", err)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		// A newer connect or a disconnect superseded this attempt; the
		// freshly opened transport must not corrupt state.
		c.mu.Unlock()
		_ = t.Close(CloseNormal, "superseded")
		return NewError(ErrorSuperseded, "connect superseded")
	}
	c.conn = t
	readCtx, cancel := context.WithCancel(context.Background())
	c.readCancel = cancel
	ev = c.setStateLocked(StateConnected, nil)
	c.mu.Unlock()
	c.emitState(ev)

	c.reconnect.onConnected()
	c.heartbeat.start()
	go c.readLoop(readCtx, epoch, t)
	return nil
}

func (c *Client) wsURL(roomID, token string) string {
	return c.cfg.BaseURL + "/ws/" + url.PathEscape(roomID) + "?token=" + url.QueryEscape(token)
}

func (c *Client) dialWebsocket(ctx context.Context, u string) (transport, error) {
	ws, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	return internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout), nil
}

// Disconnect closes the channel intentionally: it invalidates any
// in-flight attempt, suppresses reconnection, and clears the room
// identity after a short grace delay so a redial already in flight is
// not raced.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	conn := c.conn
	c.conn = nil
	if c.readCancel != nil {
		c.readCancel()
		c.readCancel = nil
	}
	c.wantConnected = false
	if c.identityTimer != nil {
		c.identityTimer.Stop()
	}
	c.identityTimer = time.AfterFunc(c.cfg.IdentityClearDelay, func() {
		c.mu.Lock()
		if c.epoch == epoch {
			c.roomID, c.token = "", ""
		}
		c.mu.Unlock()
	})
	ev := c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()

	c.heartbeat.stop()
	c.reconnect.reset()
	c.readCache.clear()
	if conn != nil {
		_ = conn.Close(CloseNormal, "client disconnect")
	}
	c.emitState(ev)
}

// Close shuts the client down for good: disconnect, drop all timers,
// and forget every listener registration.
func (c *Client) Close() error {
	c.Disconnect()
	c.mu.Lock()
	c.closed = true
	if c.identityTimer != nil {
		c.identityTimer.Stop()
		c.identityTimer = nil
	}
	c.roomID, c.token = "", ""
	c.mu.Unlock()
	c.bus.Clear()
	c.outbox.Clear()
	c.roster.Clear()
	return nil
}

// ManualReconnect re-arms the retry budget and dials with the stored
// identity. It is the caller-initiated recovery path after a terminal
// reconnect_failed.
func (c *Client) ManualReconnect(ctx context.Context) error {
	c.mu.Lock()
	roomID, token := c.roomID, c.token
	c.mu.Unlock()
	if roomID == "" {
		return NewError(ErrorDisconnected, "no connection identity")
	}
	c.reconnect.reset()
	return c.connectInternal(ctx, roomID, token, false)
}

// NotifyOnline re-arms the retry budget on a network-online transition
// and schedules an immediate attempt if currently disconnected.
func (c *Client) NotifyOnline() {
	c.reconnect.rearm()
	if c.canReconnect() {
		c.reconnect.scheduleNow()
	}
}

// NotifyVisible resumes the liveness monitor when the app returns to
// the foreground and, if disconnected, schedules a reconnection.
func (c *Client) NotifyVisible() {
	c.heartbeat.resume()
	if c.canReconnect() {
		c.reconnect.scheduleNow()
	}
}

// NotifyHidden pauses the liveness monitor while the app is
// backgrounded.
func (c *Client) NotifyHidden() {
	c.heartbeat.pause()
}

// IsConnected reports whether the channel is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Users returns the current room roster.
func (c *Client) Users() []RosterUser { return c.roster.Users() }

// MessageStatus reports the local delivery status for a temp id.
func (c *Client) MessageStatus(tempID string) (MessageStatus, string, bool) {
	return c.outbox.Status(tempID)
}

// MatchEcho reconciles a rebroadcast message against a provisional
// local copy when the server does not echo temp ids. See Outbox.
func (c *Client) MatchEcho(content, author string, ts time.Time) (string, bool) {
	return c.outbox.MatchEcho(content, author, ts, c.cfg.EchoMatchWindow)
}

// SendMessage encodes and transmits a chat message. It fails fast with
// false when not connected, marking the correlation id failed if one
// was supplied. A missing temp id is generated.
func (c *Client) SendMessage(content, messageType, tempID string, metadata map[string]any) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		if tempID != "" {
			c.outbox.MarkFailed(tempID, "not connected")
		}
		return false
	}
	if tempID == "" {
		tempID = NewTempID()
	}

	author := ""
	if c.auth != nil {
		if u, ok := c.auth.CurrentUser(); ok {
			author = u.ID
		}
	}
	c.outbox.Track(tempID, content, author)

	cmd := messageCommand{
		Type:        "message",
		Content:     content,
		MessageType: messageType,
		TempID:      tempID,
		Metadata:    metadata,
	}
	if err := conn.Write(context.Background(), cmd); err != nil {
		c.logger.Warn("send failed", map[string]any{"temp_id": tempID, "error": err.Error()})
		c.outbox.MarkFailed(tempID, err.Error())
		return false
	}
	c.outbox.MarkSent(tempID)
	return true
}

// MarkNotificationRead transmits a single-notification read receipt.
func (c *Client) MarkNotificationRead(notificationID string) bool {
	return c.sendCommand(readCommand{
		Type:           "notification_read",
		NotificationID: notificationID,
		ReadType:       ReadTypeNotification,
	})
}

// MarkRoomMessagesRead transmits a room-scope read receipt. Overlapping
// requests for the same room inside the cache TTL are collapsed into
// one network call.
func (c *Client) MarkRoomMessagesRead(roomID string) bool {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return false
	}
	if !c.readCache.tryAcquire(roomID) {
		return false
	}
	return c.sendCommand(readCommand{
		Type:         "notification_read",
		ReadType:     ReadTypeRoom,
		TargetRoomID: roomID,
	})
}

// MarkAllNotificationsRead transmits an all-scope read receipt.
func (c *Client) MarkAllNotificationsRead() bool {
	return c.sendCommand(readCommand{
		Type:     "notification_read",
		ReadType: ReadTypeAll,
	})
}

func (c *Client) sendCommand(v any) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return false
	}
	if err := conn.Write(context.Background(), v); err != nil {
		c.logger.Warn("command write failed", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	return c.sendCommand(pingCommand{Type: "ping"})
}

// onLivenessTimeout converts an unanswered probe into a synthetic
// unclean closure, so the reconnect policy sees it like any other drop.
func (c *Client) onLivenessTimeout() {
	c.mu.Lock()
	epoch := c.epoch
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close(CloseLivenessTimeout, "liveness timeout")
	c.handleClose(epoch, CloseLivenessTimeout, NewError(ErrorLivenessTimeout, "ping unanswered"))
}

func (c *Client) readLoop(ctx context.Context, epoch uint64, t transport) {
	for {
		data, err := t.ReadRaw(ctx)
		if err != nil {
			code := websocket.CloseStatus(err)
			if code == -1 {
				code = websocket.StatusAbnormalClosure
			}
			if !isExpectedDisconnect(ctx, err) {
				c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			}
			c.handleClose(epoch, code, err)
			return
		}
		c.mu.Lock()
		stale := c.epoch != epoch
		c.mu.Unlock()
		if stale {
			return
		}
		c.disp.handleRaw(data)
	}
}

// handleClose runs the teardown for one connection epoch exactly once.
// Callbacks from a superseded transport fall through the epoch guard
// and become no-ops.
func (c *Client) handleClose(epoch uint64, code websocket.StatusCode, cause error) {
	c.mu.Lock()
	if c.epoch != epoch || epoch <= c.closedEpoch {
		c.mu.Unlock()
		return
	}
	c.closedEpoch = epoch
	if c.readCancel != nil {
		c.readCancel()
		c.readCancel = nil
	}
	c.conn = nil
	identity := c.roomID != ""
	ev := c.setStateLocked(StateDisconnected, cause)
	c.mu.Unlock()

	c.heartbeat.stop()
	c.emitState(ev)

	if !isExpectedDisconnect(nil, cause) {
		c.bus.Emit(EventError, WrapError(FromCloseCode(code), "connection closed", cause))
	}

	if c.cfg.AutoReconnect && identity && !reconnectSuppressed(code) {
		c.reconnect.schedule()
	}
}

func (c *Client) canReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.wantConnected && c.roomID != "" && c.state == StateDisconnected
}

func (c *Client) reconnectAttempt() error {
	c.mu.Lock()
	roomID, token := c.roomID, c.token
	c.mu.Unlock()
	if roomID == "" {
		return NewError(ErrorDisconnected, "no connection identity")
	}
	return c.connectInternal(context.Background(), roomID, token, true)
}

// setStateLocked records a state change and returns the event to emit,
// or nil for a same-state "change". Emission happens outside the lock.
func (c *Client) setStateLocked(s ConnectionState, cause error) *StateEvent {
	if c.state == s {
		return nil
	}
	ev := &StateEvent{OldState: c.state, NewState: s, Error: cause}
	c.state = s
	return ev
}

func (c *Client) emitState(ev *StateEvent) {
	if ev == nil {
		return
	}
	c.logger.Info("connection state changed", map[string]any{
		"from": ev.OldState.String(),
		"to":   ev.NewState.String(),
	})
	c.bus.Emit(EventConnectionStateChanged, *ev)
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
