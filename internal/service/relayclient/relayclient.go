// Package relayclient is the HTTP/WS client the messenger app speaks
// to the relay with: send/poll/consume over HTTP, and an optional
// stream subscription over WebSocket. Grounded on the teacher's
// internal/service/app/api.go (getSharedKeysOfUser's http.Get,
// initWebhook's websocket.DefaultDialer.Dial), generalized from a
// single `/keys/{name}` + `/init` pair to this spec's five JSON
// endpoints plus the streaming side-channel.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ghostwire/internal/model"

	"github.com/gorilla/websocket"
)

// DefaultTimeout bounds every HTTP call this client makes.
const DefaultTimeout = 10 * time.Second

// Client talks to one relay instance over HTTP and WebSocket.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client against addr, e.g. "localhost:9090".
func New(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Send posts req to /api/v1/send.
func (c *Client) Send(ctx context.Context, req model.SendRequest) (*model.SendResponse, error) {
	var resp model.SendResponse
	if err := c.postJSON(ctx, "/api/v1/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Poll posts token to /api/v1/poll. Non-destructive.
func (c *Client) Poll(ctx context.Context, token string) (*model.MessagesResponse, error) {
	var resp model.MessagesResponse
	if err := c.postJSON(ctx, "/api/v1/poll", model.TokenRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Consume posts token to /api/v1/consume. Destructive, atomic.
func (c *Client) Consume(ctx context.Context, token string) (*model.MessagesResponse, error) {
	var resp model.MessagesResponse
	if err := c.postJSON(ctx, "/api/v1/consume", model.TokenRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches /api/v1/status.
func (c *Client) Status(ctx context.Context) (*model.StatusResponse, error) {
	var resp model.StatusResponse
	if err := c.getJSON(ctx, "/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches /api/v1/health.
func (c *Client) Health(ctx context.Context) (*model.HealthResponse, error) {
	var resp model.HealthResponse
	if err := c.getJSON(ctx, "/api/v1/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("relayclient: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("relayclient: build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("relayclient: build request %s: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relayclient: %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error, Field: apiErr.Field}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError carries a non-2xx relay response. Callers distinguish
// retryable (5xx, 429) from terminal (other 4xx) per spec.md §7.
type StatusError struct {
	Code    int
	Message string
	Field   string
}

func (e *StatusError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("relay: %d %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("relay: %d %s", e.Code, e.Message)
}

// Retryable reports whether the client should retry with backoff:
// every 5xx, plus 429 per spec.md §7.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Stream opens a WebSocket subscription to token's courtesy push
// channel (SPEC_FULL.md §4.3). The caller owns the returned
// connection's lifecycle.
func (c *Client) Stream(token string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: c.wsHost(), Path: "/api/v1/stream", RawQuery: "token=" + token}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("relayclient: stream dial: %w", err)
	}
	return conn, nil
}

func (c *Client) wsHost() string {
	return c.baseURL[len("http://"):]
}
