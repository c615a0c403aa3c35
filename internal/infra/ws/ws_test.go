package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// stubVerifier accepts tokens of the form "seller:<id>".
type stubVerifier struct{}

func (stubVerifier) Verify(token string) (string, error) {
	if strings.HasPrefix(token, "seller:") {
		return strings.TrimPrefix(token, "seller:"), nil
	}
	return "", domain.ErrAuthFailed
}

func testConfig() Config {
	return Config{
		HandshakeTimeout:  2 * time.Second,
		HeartbeatInterval: 50 * time.Millisecond,
		PongTimeout:       2 * time.Second,
		WriteTimeout:      time.Second,
	}
}

func newTestServer(t *testing.T) (*Registry, *httptest.Server) {
	t.Helper()
	reg := NewRegistry(testConfig(), stubVerifier{})
	srv := httptest.NewServer(http.HandlerFunc(reg.HandleWS))
	t.Cleanup(func() {
		reg.Close()
		srv.Close()
	})
	return reg, srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
}

// dialSeller connects and consumes the "connected" ack.
func dialSeller(t *testing.T, srv *httptest.Server, sellerID string) *websocket.Conn {
	t.Helper()
	wc, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "seller:"+sellerID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { wc.Close() })

	var ack domain.Event
	wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := wc.ReadJSON(&ack); err != nil {
		t.Fatalf("read handshake ack: %v", err)
	}
	if ack.Type != domain.EventConnected {
		t.Fatalf("ack type = %q, want connected", ack.Type)
	}
	return wc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

// ─── Handshake ──────────────────────────────────────────────────────────────

func TestHandshake_ValidToken(t *testing.T) {
	reg, srv := newTestServer(t)
	dialSeller(t, srv, "s1")

	waitFor(t, func() bool { return reg.Connected("s1") })
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestHandshake_InvalidTokenClosedWith1008(t *testing.T) {
	reg, srv := newTestServer(t)

	wc, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "garbage"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer wc.Close()

	wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = wc.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("err = %v, want close 1008 (policy violation)", err)
	}
	if reg.Count() != 0 {
		t.Errorf("rejected connection was registered: Count() = %d", reg.Count())
	}
}

func TestHandshake_MissingTokenClosedWith1008(t *testing.T) {
	_, srv := newTestServer(t)

	wc, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer wc.Close()

	wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = wc.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("err = %v, want close 1008 (policy violation)", err)
	}
}

// ─── Registry ───────────────────────────────────────────────────────────────

func TestReplaceOnReconnect(t *testing.T) {
	reg, srv := newTestServer(t)

	first := dialSeller(t, srv, "s1")
	waitFor(t, func() bool { return reg.Connected("s1") })

	dialSeller(t, srv, "s1")

	// The prior connection is closed with the replaced close code.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	if !websocket.IsCloseError(err, closeReplaced) {
		t.Errorf("first conn err = %v, want close %d (replaced)", err, closeReplaced)
	}

	// Still exactly one registered connection for the seller.
	waitFor(t, func() bool { return reg.Count() == 1 })
	if !reg.Connected("s1") {
		t.Error("seller should remain connected through replacement")
	}
}

func TestSendTo(t *testing.T) {
	reg, srv := newTestServer(t)
	wc := dialSeller(t, srv, "s1")
	waitFor(t, func() bool { return reg.Connected("s1") })

	ev, _ := domain.NewEvent(domain.EventProductCreated, map[string]string{"id": "p1"})
	if err := reg.SendTo("s1", ev); err != nil {
		t.Fatalf("SendTo() error: %v", err)
	}

	var got domain.Event
	wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := wc.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != domain.EventProductCreated {
		t.Errorf("type = %q, want product_created", got.Type)
	}
}

func TestSendTo_NotConnected(t *testing.T) {
	reg, _ := newTestServer(t)
	ev, _ := domain.NewEvent(domain.EventProductCreated, nil)
	if err := reg.SendTo("ghost", ev); err != domain.ErrNotConnected {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestBroadcast_IsolatesDeadRecipients(t *testing.T) {
	reg, srv := newTestServer(t)
	c1 := dialSeller(t, srv, "s1")
	c2 := dialSeller(t, srv, "s2")
	waitFor(t, func() bool { return reg.Count() == 2 })

	// Kill s1's socket and wait for the registry to notice.
	c1.Close()
	waitFor(t, func() bool { return reg.Count() == 1 })

	ev, _ := domain.NewEvent(domain.EventLiveStarted, nil)
	reg.Broadcast(ev)

	var got domain.Event
	c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := c2.ReadJSON(&got); err != nil {
		t.Fatalf("surviving recipient read: %v", err)
	}
	if got.Type != domain.EventLiveStarted {
		t.Errorf("type = %q, want live_started", got.Type)
	}
}

func TestOnAuthenticated_FiresOnConnectAndSync(t *testing.T) {
	reg, srv := newTestServer(t)
	fired := make(chan string, 4)
	reg.OnAuthenticated(func(sellerID string) { fired <- sellerID })

	wc := dialSeller(t, srv, "s1")

	select {
	case got := <-fired:
		if got != "s1" {
			t.Errorf("hook seller = %q, want s1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hook did not fire on connect")
	}

	// An explicit sync request fires it again.
	syncEv, _ := domain.NewEvent(domain.EventSync, nil)
	data, _ := json.Marshal(syncEv)
	if err := wc.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write sync: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("hook did not fire on sync request")
	}
}

func TestApplicationPing(t *testing.T) {
	reg, srv := newTestServer(t)
	wc := dialSeller(t, srv, "s1")
	waitFor(t, func() bool { return reg.Connected("s1") })

	ping, _ := domain.NewEvent(domain.EventPing, nil)
	data, _ := json.Marshal(ping)
	if err := wc.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	var got domain.Event
	wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := wc.ReadJSON(&got); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if got.Type != domain.EventPong {
		t.Errorf("type = %q, want pong", got.Type)
	}
}
