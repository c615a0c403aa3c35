package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// closeReplaced is the close code sent to a seller's prior connection when a
// new authenticated connection for the same seller takes its place.
const closeReplaced = 4001

// Conn is one seller's live socket. The registry is its only owner; no other
// component holds or mutates it directly.
type Conn struct {
	sellerID string
	wc       *websocket.Conn

	writeMu      sync.Mutex // serializes data and control writes
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(sellerID string, wc *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		sellerID:     sellerID,
		wc:           wc,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// SellerID returns the authenticated seller this connection belongs to.
func (c *Conn) SellerID() string { return c.sellerID }

// Send writes one event envelope to the socket. The write is synchronous so
// the caller learns about delivery failure and can hand the event to the
// retry store.
func (c *Conn) Send(ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.wc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.wc.WriteMessage(websocket.TextMessage, data)
}

// ping sends a websocket ping control frame.
func (c *Conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.wc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.wc.WriteMessage(websocket.PingMessage, nil)
}

// close sends a close frame with the given code and tears the socket down.
// Safe to call more than once.
func (c *Conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		c.writeMu.Lock()
		c.wc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		c.wc.WriteMessage(websocket.CloseMessage, msg)
		c.writeMu.Unlock()
		c.wc.Close()
	})
}
