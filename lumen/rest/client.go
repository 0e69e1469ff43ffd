// Package rest is the request/response collaborator of the realtime
// client: token acquisition, room management, paginated history, and
// the read-receipt reconciliation fallback invoked by UI-level code
// after a room-scope read-status event.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client provides REST API access to the chat server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST API client. baseURL should be the base
// URL of the API, e.g. "https://chat.example.com/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Authentication endpoints

// Register creates a new user account and returns a token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/register", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with existing credentials and returns a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GuestLogin creates a temporary guest user and returns a token.
func (c *Client) GuestLogin(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/guest", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Room management endpoints

// CreateRoom creates a new public or private room.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomInfo, error) {
	var resp RoomInfo
	if err := c.post(ctx, "/rooms", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRooms returns all accessible rooms for the authenticated user.
func (c *Client) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	var resp []RoomInfo
	if err := c.get(ctx, "/rooms", &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// Message history endpoints

// GetMessages retrieves message history for a room with cursor-based
// pagination. limit caps the page size; a non-empty before returns
// messages older than that message id.
func (c *Client) GetMessages(ctx context.Context, roomID string, limit int, before string) (*MessagesResponse, error) {
	path := fmt.Sprintf("/rooms/%s/messages?limit=%d", url.PathEscape(roomID), limit)
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}

	var resp MessagesResponse
	if err := c.get(ctx, path, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Read receipt endpoints

// MarkRoomRead marks every message in a room read. It is the
// eventually-consistent reconciliation path UI code falls back to
// after a room-scope read-status event on the realtime channel.
func (c *Client) MarkRoomRead(ctx context.Context, roomID string) (*ReadReceiptResponse, error) {
	path := fmt.Sprintf("/rooms/%s/read", url.PathEscape(roomID))
	var resp ReadReceiptResponse
	if err := c.post(ctx, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
