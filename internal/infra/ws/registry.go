// Package ws owns the live seller connections: the authenticated websocket
// handshake, the per-seller connection map with replace-on-reconnect, the
// heartbeat that weeds out half-open sockets, and the reconnecting client.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/observability"
)

// Verifier validates a handshake token and returns the seller it belongs to.
// Implemented by internal/infra/auth.
type Verifier interface {
	Verify(token string) (sellerID string, err error)
}

// Config controls handshake and heartbeat behavior.
type Config struct {
	HandshakeTimeout  time.Duration // bound on the upgrade + auth window
	HeartbeatInterval time.Duration // ping cadence
	PongTimeout       time.Duration // missing pong past this closes the socket
	WriteTimeout      time.Duration // per-write deadline
}

// DefaultConfig returns production defaults. PongTimeout must exceed
// HeartbeatInterval or every connection would time out between pings.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		PongTimeout:       75 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Registry maps seller IDs to live connections. At most one connection per
// seller: a new authenticated connection replaces (and closes) the prior one.
// All mutations happen through Register/unregister under the registry lock.
type Registry struct {
	cfg      Config
	verifier Verifier
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[string]*Conn
	closed bool

	onAuth func(sellerID string) // fires after a seller (re)connects
}

// NewRegistry creates a connection registry.
func NewRegistry(cfg Config, verifier Verifier) *Registry {
	return &Registry{
		cfg:      cfg,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*Conn),
	}
}

// OnAuthenticated registers a callback invoked whenever a seller completes
// the handshake. The retry sweeper hooks in here to redeliver stored
// notifications on reconnect.
func (reg *Registry) OnAuthenticated(fn func(sellerID string)) { reg.onAuth = fn }

// HandleWS upgrades an HTTP request to a websocket connection. The token
// travels as a connection parameter; a missing or invalid token closes the
// socket with close code 1008 (policy violation) and the connection is never
// registered.
func (reg *Registry) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	wc, err := reg.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[registry] upgrade failed: %v", err)
		observability.HandshakeFailures.WithLabelValues("upgrade").Inc()
		return
	}

	sellerID, err := reg.verifier.Verify(token)
	if err != nil {
		log.Printf("[registry] handshake rejected: %v", err)
		observability.HandshakeFailures.WithLabelValues("token").Inc()
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		wc.SetWriteDeadline(time.Now().Add(reg.cfg.WriteTimeout))
		wc.WriteMessage(websocket.CloseMessage, msg)
		wc.Close()
		return
	}

	c := newConn(sellerID, wc, reg.cfg.WriteTimeout)
	if err := reg.register(c); err != nil {
		c.close(websocket.CloseGoingAway, "server shutting down")
		return
	}

	// Explicit confirmation that the handshake succeeded.
	ack, _ := domain.NewEvent(domain.EventConnected, map[string]string{"seller_id": sellerID})
	if err := c.Send(ack); err != nil {
		reg.unregister(c)
		c.close(websocket.CloseInternalServerErr, "handshake ack failed")
		return
	}

	log.Printf("[registry] seller %s connected", sellerID)
	if reg.onAuth != nil {
		go reg.onAuth(sellerID)
	}

	go reg.heartbeat(c)
	reg.readLoop(c)
}

// register installs the connection, replacing and closing any prior one for
// the same seller.
func (reg *Registry) register(c *Conn) error {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return domain.ErrRegistryClosed
	}
	prior := reg.conns[c.sellerID]
	reg.conns[c.sellerID] = c
	observability.ConnectedSellers.Set(float64(len(reg.conns)))
	reg.mu.Unlock()

	if prior != nil {
		observability.ConnectionsReplaced.Inc()
		log.Printf("[registry] seller %s reconnected, closing prior connection", c.sellerID)
		prior.close(closeReplaced, "replaced by new connection")
	}
	return nil
}

// unregister removes the connection if it is still the seller's current one.
// A connection replaced by a newer one must not evict its successor.
func (reg *Registry) unregister(c *Conn) {
	reg.mu.Lock()
	if reg.conns[c.sellerID] == c {
		delete(reg.conns, c.sellerID)
		observability.ConnectedSellers.Set(float64(len(reg.conns)))
	}
	reg.mu.Unlock()
}

// Connected reports whether the seller currently has a live connection.
func (reg *Registry) Connected(sellerID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.conns[sellerID]
	return ok
}

// SendTo writes one event to the seller's connection. Returns
// domain.ErrNotConnected when the seller has no live socket.
func (reg *Registry) SendTo(sellerID string, ev domain.Event) error {
	reg.mu.RLock()
	c, ok := reg.conns[sellerID]
	reg.mu.RUnlock()
	if !ok {
		return domain.ErrNotConnected
	}
	return c.Send(ev)
}

// Broadcast writes the event to every connected seller. A write failure for
// one recipient is logged and the iteration continues — per-recipient
// failures stay isolated.
func (reg *Registry) Broadcast(ev domain.Event) {
	reg.mu.RLock()
	conns := make([]*Conn, 0, len(reg.conns))
	for _, c := range reg.conns {
		conns = append(conns, c)
	}
	reg.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(ev); err != nil {
			log.Printf("[registry] broadcast to seller %s failed: %v", c.sellerID, err)
			continue
		}
		observability.EventsDelivered.WithLabelValues("broadcast").Inc()
	}
}

// Count returns the number of registered connections.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.conns)
}

// Close shuts the registry down and closes every connection.
func (reg *Registry) Close() {
	reg.mu.Lock()
	reg.closed = true
	conns := make([]*Conn, 0, len(reg.conns))
	for _, c := range reg.conns {
		conns = append(conns, c)
	}
	reg.conns = make(map[string]*Conn)
	observability.ConnectedSellers.Set(0)
	reg.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

// readLoop consumes inbound frames until the socket dies. The read deadline
// doubles as the heartbeat watchdog: each pong pushes it forward, and a
// half-open socket times out here.
func (reg *Registry) readLoop(c *Conn) {
	defer func() {
		reg.unregister(c)
		c.close(websocket.CloseNormalClosure, "")
		log.Printf("[registry] seller %s disconnected", c.sellerID)
	}()

	c.wc.SetReadDeadline(time.Now().Add(reg.cfg.PongTimeout))
	c.wc.SetPongHandler(func(string) error {
		c.wc.SetReadDeadline(time.Now().Add(reg.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.wc.ReadMessage()
		if err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				observability.HeartbeatTimeouts.Inc()
			}
			return
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case domain.EventPing:
			// Application-level heartbeat from the client.
			pong, _ := domain.NewEvent(domain.EventPong, nil)
			c.Send(pong)
		case domain.EventSync:
			// Client requests redelivery of stored notifications.
			if reg.onAuth != nil {
				go reg.onAuth(c.sellerID)
			}
		}
	}
}

// heartbeat pings the connection on a fixed interval. A failed ping write
// closes the socket, which ends the read loop and unregisters the seller.
// One ticker per connection; heartbeats for unrelated sellers never block
// on each other.
func (reg *Registry) heartbeat(c *Conn) {
	t := time.NewTicker(reg.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := c.ping(); err != nil {
				c.close(websocket.CloseGoingAway, "heartbeat write failed")
				return
			}
		}
	}
}
