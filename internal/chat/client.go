package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// snapshots carry the whole transcript, so the client accepts large frames.
const clientReadLimit = 4 << 20

// Client is a terminal's connection to the tutor.
type Client struct {
	conn *websocket.Conn
}

// DialError is a rejected upgrade. Message is the server's explanation.
type DialError struct {
	StatusCode int
	Message    string
}

func (e *DialError) Error() string {
	return fmt.Sprintf("server refused connection (%d): %s", e.StatusCode, e.Message)
}

// SocketURL turns a server base URL into the /ws address for a student.
func SocketURL(serverURL, terminalID, studentName string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parsing server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{
		"terminalId":  {terminalID},
		"studentName": {studentName},
	}.Encode()
	return u.String(), nil
}

// Dial connects to the server. apiKey is optional.
func Dial(ctx context.Context, serverURL, terminalID, studentName, apiKey string) (*Client, error) {
	target, err := SocketURL(serverURL, terminalID, studentName)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if apiKey != "" {
		header.Set(ClientKeyHeader, apiKey)
	}

	conn, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, dialError(resp)
		}
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}
	conn.SetReadLimit(clientReadLimit)
	return &Client{conn: conn}, nil
}

func dialError(resp *http.Response) error {
	e := &DialError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if resp.Body == nil {
		return e
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		e.Message = body.Message
	}
	return e
}

// Send writes one frame.
func (c *Client) Send(ctx context.Context, f InboundFrame) error {
	if err := wsjson.Write(ctx, c.conn, f); err != nil {
		return fmt.Errorf("sending %s: %w", f.Type, err)
	}
	return nil
}

// SelectGrade picks the student's grade.
func (c *Client) SelectGrade(ctx context.Context, grade string) error {
	return c.Send(ctx, InboundFrame{Type: FrameSelectGrade, Grade: grade})
}

// SendText sends a chat message or code submission.
func (c *Client) SendText(ctx context.Context, text string) error {
	return c.Send(ctx, InboundFrame{Type: FrameMessage, Text: text})
}

// Act chooses a quick reply by label.
func (c *Client) Act(ctx context.Context, label string) error {
	return c.Send(ctx, InboundFrame{Type: FrameAction, Label: label})
}

// Next blocks for the next server frame.
func (c *Client) Next(ctx context.Context) (OutboundFrame, error) {
	var f OutboundFrame
	if err := wsjson.Read(ctx, c.conn, &f); err != nil {
		return OutboundFrame{}, fmt.Errorf("reading frame: %w", err)
	}
	return f, nil
}

// Close ends the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
