// Package viewerclient dials a periscope hub and feeds its event stream
// into a reconcile.Engine. It is the Go counterpart of the browser
// bundle, used by the demo command and by integration tests.
package viewerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/periscope/reconcile"
	"pkt.systems/periscope/schema"
	"pkt.systems/pslog"
)

const dialTimeout = 10 * time.Second

// Client is one connected viewer.
type Client struct {
	sock   *websocket.Conn
	engine *reconcile.Engine
	logger pslog.Logger

	mu     sync.Mutex // guards engine application and writes
	closed bool
	done   chan struct{}
}

// Dial connects to the hub at baseURL (http or https scheme) and starts
// the read loop. The connection closes when ctx is canceled.
func Dial(ctx context.Context, baseURL string, engine *reconcile.Engine) (*Client, error) {
	logger := pslog.Ctx(ctx)
	wsURL, err := pushURL(baseURL)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	sock, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	client := &Client{
		sock:   sock,
		engine: engine,
		logger: logger,
		done:   make(chan struct{}),
	}
	go client.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Close()
		case <-client.done:
		}
	}()
	return client, nil
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.sock.Close()
}

// SendUserMessage submits operator chat input.
func (c *Client) SendUserMessage(content string) error {
	return c.send(schema.MsgUserMessage, schema.UserMessagePayload{Content: content})
}

// SendInterrupt asks the session engine to stop the current turn.
func (c *Client) SendInterrupt() error {
	return c.send(schema.MsgInterruptRequest, nil)
}

// RespondConfirmation answers a pending tool confirmation.
func (c *Client) RespondConfirmation(callID schema.CallID, outcome schema.ConfirmationOutcome) error {
	return c.send(schema.MsgToolConfirmationResponse, schema.ConfirmationResponse{
		CallID:  callID,
		Outcome: outcome,
	})
}

func (c *Client) send(msgType schema.MessageType, payload any) error {
	env, err := schema.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("send %s: connection closed", msgType)
	}
	return c.sock.WriteJSON(env)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			c.logger.Debug("viewer read closed", "err", err)
			return
		}
		var env schema.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("viewer frame malformed", "err", err)
			continue
		}
		c.mu.Lock()
		err = c.engine.Apply(env)
		c.mu.Unlock()
		if err != nil {
			c.logger.Warn("viewer event dropped", "type", env.Type, "err", err)
		}
	}
}

func pushURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/ws"
	return parsed.String(), nil
}
