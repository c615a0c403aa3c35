package broadcast

import (
	"context"
	"log"
	"sync"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// ─── In-Process Broker ──────────────────────────────────────────────────────
// Cross-instance fan-out is optional. When the broker cannot connect the
// system degrades to single-instance in-process delivery: logged as a
// warning, never fatal.

// LocalBroker is the in-process domain.Broker used when no external broker
// is configured. It loops published events back to local subscribers, which
// keeps multi-component wiring identical in both modes.
type LocalBroker struct {
	mu       sync.Mutex
	handlers []func(ev domain.Event, target domain.Target)
	closed   bool
}

// NewLocalBroker creates an in-process broker.
func NewLocalBroker() *LocalBroker { return &LocalBroker{} }

// Connect is a no-op; the in-process broker is always reachable.
func (b *LocalBroker) Connect(ctx context.Context) error { return nil }

// Publish hands the event to every subscriber.
func (b *LocalBroker) Publish(ev domain.Event, target domain.Target) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.ErrBrokerUnavailable
	}
	handlers := make([]func(domain.Event, domain.Target), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev, target)
	}
	return nil
}

// Subscribe registers a fan-out handler.
func (b *LocalBroker) Subscribe(handler func(ev domain.Event, target domain.Target)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.ErrBrokerUnavailable
	}
	b.handlers = append(b.handlers, handler)
	return nil
}

// Close shuts the broker down.
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}

// ConnectBroker tries to connect the given broker. On failure it logs a
// warning and returns nil — the broadcaster then runs in degraded
// single-instance mode and still delivers to locally-registered connections.
func ConnectBroker(ctx context.Context, broker domain.Broker) domain.Broker {
	if broker == nil {
		return nil
	}
	if err := broker.Connect(ctx); err != nil {
		log.Printf("[broadcast] broker unavailable, degrading to single-instance fan-out: %v", err)
		return nil
	}
	return broker
}
