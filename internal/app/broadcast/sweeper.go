package broadcast

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/observability"
)

// SweeperConfig controls retry sweep behavior.
type SweeperConfig struct {
	Interval time.Duration // background sweep cadence (default 30s)
}

// DefaultSweeperConfig returns production defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: 30 * time.Second}
}

// Sweeper redelivers stored notifications. Sweeps run on seller reconnect
// and on a background timer — the timer covers any live-connection window
// the reconnect trigger missed.
type Sweeper struct {
	cfg      SweeperConfig
	registry domain.Registry
	store    domain.NotificationStore

	mu     sync.Mutex
	active map[string]bool // sellers with a sweep in flight
}

// NewSweeper creates a retry sweeper.
func NewSweeper(cfg SweeperConfig, registry domain.Registry, store domain.NotificationStore) *Sweeper {
	if cfg.Interval <= 0 {
		cfg = DefaultSweeperConfig()
	}
	return &Sweeper{cfg: cfg, registry: registry, store: store, active: make(map[string]bool)}
}

// Run drives the background timer sweep until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepAll()
		}
	}
}

// SweepAll sweeps every seller with retryable undelivered notifications.
func (s *Sweeper) SweepAll() {
	sellers, err := s.store.PendingSellers()
	if err != nil {
		log.Printf("[sweeper] list pending sellers: %v", err)
		return
	}
	for _, sellerID := range sellers {
		s.SweepSeller(sellerID)
	}
}

// SweepSeller attempts redelivery of the seller's pending notifications in
// their original publish order. On the first failed attempt the sweep stops
// for this seller: delivering later notifications past a failed earlier one
// would break per-seller FIFO order. At most one sweep per seller runs at a
// time, so a timer sweep and a reconnect sweep cannot interleave deliveries.
func (s *Sweeper) SweepSeller(sellerID string) {
	s.mu.Lock()
	if s.active[sellerID] {
		s.mu.Unlock()
		return
	}
	s.active[sellerID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, sellerID)
		s.mu.Unlock()
	}()

	if !s.registry.Connected(sellerID) {
		return
	}

	pending, err := s.store.PendingNotifications(sellerID)
	if err != nil {
		log.Printf("[sweeper] load pending for seller %s: %v", sellerID, err)
		return
	}

	for _, n := range pending {
		if err := s.registry.SendTo(sellerID, n.Event()); err != nil {
			observability.RetryAttempts.WithLabelValues("failure").Inc()
			if rerr := s.store.IncrementNotificationRetry(n.ID); rerr != nil {
				log.Printf("[sweeper] bump retry count %s: %v", n.ID, rerr)
			}
			if n.RetryCount+1 >= n.MaxRetries {
				observability.DeadNotifications.Inc()
				log.Printf("[sweeper] notification %s for seller %s exhausted %d retries, left undelivered",
					n.ID, sellerID, n.MaxRetries)
			}
			return
		}
		observability.RetryAttempts.WithLabelValues("success").Inc()
		if err := s.store.MarkNotificationSent(n.ID); err != nil {
			log.Printf("[sweeper] mark sent %s: %v", n.ID, err)
			return
		}
	}
}
