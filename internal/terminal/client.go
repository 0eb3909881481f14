package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client activates and checks terminals against a running server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses one with a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// Activate exchanges an activation token for the terminal's identity.
func (c *Client) Activate(ctx context.Context, token string) (Terminal, error) {
	return c.do(ctx, http.MethodPost, "/api/terminal?"+url.Values{"token": {token}}.Encode())
}

// Status fetches an active terminal. Errors mirror Registry.Status.
func (c *Client) Status(ctx context.Context, id string) (Terminal, error) {
	return c.do(ctx, http.MethodGet, "/api/terminal?"+url.Values{"terminalId": {id}}.Encode())
}

func (c *Client) do(ctx context.Context, method, path string) (Terminal, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return Terminal{}, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Terminal{}, fmt.Errorf("contacting server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Terminal{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		switch {
		case resp.StatusCode == http.StatusForbidden:
			return Terminal{}, fmt.Errorf("%w: %s", ErrDeactivated, e.Message)
		case resp.StatusCode == http.StatusNotFound && method == http.MethodPost:
			return Terminal{}, fmt.Errorf("%w: %s", ErrInvalidToken, e.Message)
		case resp.StatusCode == http.StatusNotFound:
			return Terminal{}, fmt.Errorf("%w: %s", ErrNotFound, e.Message)
		default:
			return Terminal{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Message)
		}
	}

	var t Terminal
	if err := json.Unmarshal(body, &t); err != nil {
		return Terminal{}, fmt.Errorf("decoding terminal: %w", err)
	}
	t.Active = true
	return t, nil
}
