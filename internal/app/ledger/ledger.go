// Package ledger implements the credit-gated action ledger.
//
// Consume is the unit of concurrency control: read balance, verify
// balance >= cost, append a negative transaction, decrement balance — as one
// atomic operation. Serialization is per seller (a lock keyed by seller ID
// over the SQL transaction), so two concurrent Consume calls for the same
// seller can never both succeed on one cost's worth of balance, while
// different sellers proceed fully in parallel.
package ledger

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/observability"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/sqlite"
)

// Ledger is the only mutator of seller balances.
type Ledger struct {
	db *sqlite.DB

	costMu sync.RWMutex
	costs  map[string]int64

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex // sellerID → per-seller serialization
}

// New creates a ledger over the given store with the given cost table.
func New(db *sqlite.DB, costs map[string]int64) *Ledger {
	if costs == nil {
		costs = domain.DefaultActionCosts()
	}
	return &Ledger{
		db:    db,
		costs: costs,
		locks: make(map[string]*sync.Mutex),
	}
}

// ReloadCosts swaps the action cost table without a restart.
func (l *Ledger) ReloadCosts(costs map[string]int64) {
	l.costMu.Lock()
	l.costs = costs
	l.costMu.Unlock()
	log.Printf("[ledger] cost table reloaded (%d action types)", len(costs))
}

// Cost returns the credit cost for an action type.
func (l *Ledger) Cost(actionType string) (int64, error) {
	l.costMu.RLock()
	defer l.costMu.RUnlock()
	cost, ok := l.costs[actionType]
	if !ok {
		return 0, &domain.UnknownActionTypeError{ActionType: actionType}
	}
	return cost, nil
}

// Balance returns the seller's current credit balance.
func (l *Ledger) Balance(sellerID string) (int64, error) {
	return l.db.GetBalance(sellerID)
}

// Consume atomically checks and spends the cost of actionType for the
// seller. On success it returns the new balance. Returns
// *UnknownActionTypeError for a cost table miss and
// *InsufficientCreditsError (with current balance and required cost, state
// untouched) when the balance cannot cover the cost.
func (l *Ledger) Consume(sellerID, actionType string) (int64, error) {
	cost, err := l.Cost(actionType)
	if err != nil {
		observability.CreditConsumes.WithLabelValues("unknown_action").Inc()
		return 0, err
	}

	mu := l.sellerLock(sellerID)
	mu.Lock()
	defer mu.Unlock()

	newBalance, err := l.db.ApplyTransaction(domain.CreditTransaction{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Amount:    -cost,
		Type:      domain.TxConsume,
		Metadata:  actionType,
		CreatedAt: time.Now(),
	})
	if errors.Is(err, sqlite.ErrBalanceWouldGoNegative) {
		observability.CreditConsumes.WithLabelValues("insufficient").Inc()
		return 0, &domain.InsufficientCreditsError{Balance: newBalance, Required: cost}
	}
	if err != nil {
		observability.CreditConsumes.WithLabelValues("error").Inc()
		return 0, err
	}

	observability.CreditConsumes.WithLabelValues("ok").Inc()
	return newBalance, nil
}

// Purchase appends a positive transaction for the given credit amount.
// It shares the per-seller lock with Consume so the two stay atomic with
// respect to each other.
func (l *Ledger) Purchase(sellerID string, credits int64, metadata string) (int64, error) {
	mu := l.sellerLock(sellerID)
	mu.Lock()
	defer mu.Unlock()

	newBalance, err := l.db.ApplyTransaction(domain.CreditTransaction{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Amount:    credits,
		Type:      domain.TxPurchase,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[ledger] seller %s purchased %d credits (balance %d)", sellerID, credits, newBalance)
	return newBalance, nil
}

// Transactions returns the seller's transaction history, newest first.
func (l *Ledger) Transactions(sellerID string, limit int) ([]domain.CreditTransaction, error) {
	return l.db.ListTransactions(sellerID, limit)
}

// Reconcile verifies the ledger invariant for a seller:
// balance == sum of all transaction amounts.
func (l *Ledger) Reconcile(sellerID string) (bool, error) {
	mu := l.sellerLock(sellerID)
	mu.Lock()
	defer mu.Unlock()

	balance, err := l.db.GetBalance(sellerID)
	if err != nil {
		return false, err
	}
	sum, err := l.db.SumTransactions(sellerID)
	if err != nil {
		return false, err
	}
	return balance == sum, nil
}

// sellerLock returns the mutex serializing writes for one seller.
// Entries are created on demand and never removed; the per-seller footprint
// is one mutex.
func (l *Ledger) sellerLock(sellerID string) *sync.Mutex {
	l.lockMu.Lock()
	defer l.lockMu.Unlock()
	mu, ok := l.locks[sellerID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[sellerID] = mu
	}
	return mu
}
