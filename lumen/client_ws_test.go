package lumen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// TestConnectOverRealWebsocket exercises the real dial path against an
// in-process server: URL shape, handshake, inbound frame flow, and
// clean shutdown.
func TestConnectOverRealWebsocket(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		frame := map[string]any{
			"type":    "room_users",
			"payload": map[string]any{"users": []map[string]any{{"id": "u1"}}},
		}
		if err := wsjson.Write(r.Context(), conn, frame); err != nil {
			return
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.HeartbeatInterval = time.Hour
	c := NewClient(cfg)
	defer c.Close()

	if err := c.Connect(context.Background(), "r1", "t1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatal("expected connected state")
	}

	mu.Lock()
	path, token := gotPath, gotToken
	mu.Unlock()
	if path != "/ws/r1" || token != "t1" {
		t.Fatalf("unexpected handshake: path=%q token=%q", path, token)
	}

	waitFor(t, 2*time.Second, func() bool {
		users := c.Users()
		return len(users) == 1 && users[0].ID == "u1" && users[0].IsActive
	})

	c.Disconnect()
	if c.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %v", c.State())
	}
}
