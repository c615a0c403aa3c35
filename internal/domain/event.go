package domain

import "encoding/json"

// ─── Event Envelope ─────────────────────────────────────────────────────────
// Every message on the wire, in both directions, is {type, payload}.

// Event catalog. Seller-scoped events are stored for retry when the seller
// is offline; broadcast events are best-effort fire-and-forget.
const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
	EventOrderCreated   = "order_created"
	EventOrderUpdated   = "order_updated"
	EventLiveStarted    = "live_started"
	EventLiveEnded      = "live_ended"
	EventNotification   = "notification"
	EventConnected      = "connected"
	EventSync           = "sync"
	EventPing           = "ping"
	EventPong           = "pong"
)

// Event is the wire envelope for all realtime messages.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event, marshaling payload to JSON.
// A nil payload produces an envelope with no payload field.
func NewEvent(eventType string, payload any) (Event, error) {
	ev := Event{Type: eventType}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = raw
	return ev, nil
}

// ─── Publish Targets ────────────────────────────────────────────────────────

// Target identifies the recipient set for a published event:
// a single seller, or every currently-connected seller.
type Target struct {
	SellerID  string
	Broadcast bool
}

// ToSeller targets one seller. Delivery is at-least-once: if the seller is
// offline or the write fails, the event lands in the notification retry store.
func ToSeller(sellerID string) Target { return Target{SellerID: sellerID} }

// ToAll targets every connected seller, best-effort.
func ToAll() Target { return Target{Broadcast: true} }
