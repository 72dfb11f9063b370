// Package node maintains one logical websocket link to a ledger node and
// exposes the request/response call the rest of the demo is built on.
// Requests are correlated one-to-one by id; callers serialize their calls,
// so there is no pipelining and a single read loop per request suffices.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultSendTimeout bounds one request/response round trip when the
// caller's context carries no earlier deadline.
const DefaultSendTimeout = 15 * time.Second

var (
	// ErrClosed reports a Send on a closed connection. No network I/O is
	// attempted; callers must Reinstate first.
	ErrClosed = errors.New("connection closed")

	// ErrNetwork reports a transport-level failure (dial, write, read,
	// deadline expiry).
	ErrNetwork = errors.New("network failure")

	// ErrProtocol reports a response the node produced that this client
	// cannot make sense of.
	ErrProtocol = errors.New("protocol error")
)

// Error is a node-reported request failure (status "error"), carrying the
// node's error code, e.g. "actNotFound".
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("node error %s", e.Code)
	}
	return fmt.Sprintf("node error %s: %s", e.Code, e.Message)
}

// Conn is a single logical connection to one node endpoint. The zero
// lifecycle is Disconnected; Reinstate dials, Close releases, and both are
// idempotent. There is no automatic reconnect.
type Conn struct {
	url     string
	timeout time.Duration

	mu sync.Mutex
	ws *websocket.Conn
}

// New returns a disconnected Conn for the given websocket endpoint. A
// non-positive timeout selects DefaultSendTimeout.
func New(url string, timeout time.Duration) *Conn {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Conn{url: url, timeout: timeout}
}

// Reinstate dials the endpoint if the link is currently closed, and is a
// no-op otherwise.
func (c *Conn) Reinstate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		return nil
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	ws, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrNetwork, c.url, err)
	}
	c.ws = ws
	return nil
}

// Close releases the underlying link. Safe to call repeatedly.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return nil
	}
	err := c.ws.Close()
	c.ws = nil
	return err
}

// envelope is the node's response framing around a result payload.
type envelope struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	Result       json.RawMessage `json:"result"`
	ErrorCode    string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
}

// Send issues one command with the given params and awaits the matching
// response, returning its result payload. Frames with a foreign or absent
// id (subscription streams and the like) are skipped. Fails with ErrClosed
// while disconnected, ErrNetwork on transport trouble, ErrProtocol on
// malformed frames, and *Error when the node reports a request failure.
func (c *Conn) Send(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return nil, fmt.Errorf("%w: %s", ErrClosed, command)
	}

	id := uuid.NewString()
	request := make(map[string]any, len(params)+2)
	for k, v := range params {
		request[k] = v
	}
	request["id"] = id
	request["command"] = command

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if err := c.ws.WriteJSON(request); err != nil {
		return nil, fmt.Errorf("%w: send %s: %v", ErrNetwork, command, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNetwork, command, err)
		}
		if err := c.ws.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: await %s: %v", ErrNetwork, command, err)
		}

		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProtocol, command, err)
		}
		if env.ID != id {
			continue
		}
		if env.Status == "error" {
			return nil, &Error{Code: env.ErrorCode, Message: env.ErrorMessage}
		}
		if env.Status != "success" || env.Type != "response" {
			return nil, fmt.Errorf("%w: %s: unexpected status %q type %q", ErrProtocol, command, env.Status, env.Type)
		}
		return env.Result, nil
	}
}
