package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/periscope/schema"
	"pkt.systems/pslog"
)

// ErrConnClosed reports a send on a connection whose transport is gone.
// The hub prunes the connection when it sees this.
var ErrConnClosed = errors.New("viewer connection closed")

const writeTimeout = 10 * time.Second

// Conn is one attached viewer connection. Send must not block the
// caller: implementations queue the envelope and deliver asynchronously.
// A returned error means the connection is dead and will be pruned.
type Conn interface {
	ID() schema.ConnID
	Send(env schema.Envelope) error
	Close() error
}

// wsConn adapts a gorilla websocket connection: a buffered send channel
// drained by a write pump goroutine, so a slow viewer never blocks the
// publish path. When the queue is full the frame is dropped for this
// viewer only.
type wsConn struct {
	id     schema.ConnID
	sock   *websocket.Conn
	sendCh chan schema.Envelope
	done   chan struct{}
	once   sync.Once
	logger pslog.Logger
}

func newWSConn(sock *websocket.Conn, buffer int, logger pslog.Logger) *wsConn {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	conn := &wsConn{
		id:     schema.ConnID(newConnID()),
		sock:   sock,
		sendCh: make(chan schema.Envelope, buffer),
		done:   make(chan struct{}),
	}
	conn.logger = logger.With("conn", conn.id)
	go conn.writePump()
	return conn
}

func (c *wsConn) ID() schema.ConnID {
	return c.id
}

func (c *wsConn) Send(env schema.Envelope) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.sendCh <- env:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		c.logger.Warn("viewer send buffer full, dropping frame", "type", env.Type)
		return nil
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.sock.Close()
}

func (c *wsConn) writePump() {
	defer func() {
		c.once.Do(func() { close(c.done) })
		_ = c.sock.Close()
	}()
	for {
		select {
		case env := <-c.sendCh:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.sock.WriteJSON(env); err != nil {
				c.logger.Debug("viewer write failed", "err", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func newConnID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "conn-unknown"
	}
	return hex.EncodeToString(buf[:])
}
