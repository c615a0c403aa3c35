package domain

import (
	"encoding/json"
	"time"
)

// ─── Notifications ──────────────────────────────────────────────────────────

// Notification is a seller-scoped event that could not be delivered
// immediately. It is retried by the sweeper until sent, or until
// RetryCount reaches MaxRetries, after which it stays in the seller's
// inbox as an undelivered record (dead, but never silently discarded).
type Notification struct {
	ID         string          `json:"id"`
	SellerID   string          `json:"seller_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Read       bool            `json:"read"`
	Sent       bool            `json:"sent"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
}

// Dead reports whether the notification exhausted its retry budget
// without confirmed delivery.
func (n Notification) Dead() bool {
	return !n.Sent && n.RetryCount >= n.MaxRetries
}

// Event rebuilds the wire envelope for a retry attempt.
func (n Notification) Event() Event {
	return Event{Type: n.Type, Payload: n.Payload}
}
