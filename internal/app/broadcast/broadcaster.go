// Package broadcast fans domain events out to connected sellers and feeds
// the notification retry ledger when immediate delivery is not confirmed.
package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/observability"
)

// Config controls broadcaster behavior.
type Config struct {
	MaxRetries int // retry budget for stored notifications (default 5)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 5}
}

// Broadcaster implements domain.Broadcaster. It is injected into whatever
// produces domain events; nothing in the process reaches a broadcast
// function through global state.
type Broadcaster struct {
	cfg      Config
	registry domain.Registry
	store    domain.NotificationStore
	broker   domain.Broker // nil when running degraded (single instance)
	sweep    func(sellerID string)
}

// New creates a broadcaster. broker may be nil for single-instance mode.
// With a broker, events travel broker → subscriber → local delivery, so
// every instance (this one included) delivers to its own connections.
func New(cfg Config, registry domain.Registry, store domain.NotificationStore, broker domain.Broker) *Broadcaster {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultConfig()
	}
	b := &Broadcaster{cfg: cfg, registry: registry, store: store, broker: broker}
	if broker != nil {
		if err := broker.Subscribe(func(ev domain.Event, target domain.Target) {
			if err := b.deliverLocal(ev, target); err != nil {
				log.Printf("[broadcast] broker-fed delivery failed: %v", err)
			}
		}); err != nil {
			log.Printf("[broadcast] broker subscribe failed, degrading to single-instance fan-out: %v", err)
			b.broker = nil
		}
	}
	return b
}

// OnStored registers a hook fired after an event is recorded for retry,
// used by the sweeper to pick up queued work promptly.
func (b *Broadcaster) OnStored(fn func(sellerID string)) { b.sweep = fn }

// Publish delivers an event to its target.
//
// Broadcast targets are best-effort: a write failure for one recipient never
// aborts delivery to the others, and nothing is stored per recipient.
//
// Seller targets are at-least-once: if the seller has no live connection, if
// the write fails, or if older undelivered notifications are still pending
// (fresh events must queue behind them, never race them), the event is
// recorded in the retry store. Delivery failure is absorbed here — it is
// never surfaced as a hard error to the publisher.
func (b *Broadcaster) Publish(ctx context.Context, ev domain.Event, target domain.Target) error {
	if b.broker != nil {
		err := b.broker.Publish(ev, target)
		if err == nil {
			return nil // subscribers (this instance included) handle delivery
		}
		log.Printf("[broadcast] broker publish failed, local-only delivery: %v", err)
	}
	return b.deliverLocal(ev, target)
}

// deliverLocal attempts delivery to connections on this instance.
func (b *Broadcaster) deliverLocal(ev domain.Event, target domain.Target) error {
	if target.Broadcast {
		b.registry.Broadcast(ev)
		return nil
	}

	pending, err := b.store.HasPending(target.SellerID)
	if err != nil {
		return fmt.Errorf("check pending for seller %s: %w", target.SellerID, err)
	}
	if pending {
		// Older events are still queued; keep FIFO order per seller.
		return b.recordUndelivered(target.SellerID, ev)
	}

	if err := b.registry.SendTo(target.SellerID, ev); err != nil {
		return b.recordUndelivered(target.SellerID, ev)
	}
	observability.EventsDelivered.WithLabelValues("unicast").Inc()
	return nil
}

// recordUndelivered stores the event in the retry ledger and pokes the
// sweeper so a connected seller gets it without waiting for the next tick.
func (b *Broadcaster) recordUndelivered(sellerID string, ev domain.Event) error {
	n := domain.Notification{
		ID:         uuid.NewString(),
		SellerID:   sellerID,
		Type:       ev.Type,
		Payload:    ev.Payload,
		MaxRetries: b.cfg.MaxRetries,
		CreatedAt:  time.Now(),
	}
	if err := b.store.InsertNotification(n); err != nil {
		return fmt.Errorf("record undelivered for seller %s: %w", sellerID, err)
	}
	observability.EventsStored.Inc()
	if b.sweep != nil {
		go b.sweep(sellerID)
	}
	return nil
}
