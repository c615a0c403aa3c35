package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Broadcaster fans a domain event out to its target recipients. The HTTP
// route layer that produces events depends on this interface, never on a
// concrete hub — there is no globally-reachable broadcast function.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event, target Target) error
}

// Registry is the sole owner of live seller connections.
type Registry interface {
	// SendTo attempts an immediate write to the seller's connection.
	// Returns ErrNotConnected when the seller has no live socket.
	SendTo(sellerID string, ev Event) error

	// Broadcast writes to every connected seller, best-effort. A failed
	// write to one recipient never aborts delivery to the others.
	Broadcast(ev Event)

	// Connected reports whether the seller currently has a live connection.
	Connected(sellerID string) bool
}

// NotificationStore persists undelivered seller-scoped events with retry
// bookkeeping. Implemented by internal/infra/sqlite.
type NotificationStore interface {
	InsertNotification(n Notification) error
	PendingNotifications(sellerID string) ([]Notification, error)
	PendingSellers() ([]string, error)
	HasPending(sellerID string) (bool, error)
	MarkNotificationSent(id string) error
	IncrementNotificationRetry(id string) error
}

// Broker is the optional cross-instance fan-out channel. When it cannot
// connect the system degrades to single-instance in-process delivery.
type Broker interface {
	Connect(ctx context.Context) error
	Publish(ev Event, target Target) error
	Subscribe(handler func(ev Event, target Target)) error
	Close() error
}
