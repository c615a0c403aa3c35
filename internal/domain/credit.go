package domain

import "time"

// ─── Credit Types ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// The ledger in internal/app/ledger is the only writer of seller balances.

// TransactionType represents the business reason for a credit operation.
type TransactionType string

const (
	TxPurchase TransactionType = "PURCHASE"
	TxConsume  TransactionType = "CONSUME"
	TxBonus    TransactionType = "BONUS"
	TxRefund   TransactionType = "REFUND"
)

// CreditTransaction is a single immutable row in the credit transaction log.
// Amount is signed: positive for purchases/bonuses, negative for consumption.
// For any seller, balance == initial balance + sum of all transaction amounts.
type CreditTransaction struct {
	ID        string          `json:"id"`
	SellerID  string          `json:"seller_id"`
	Amount    int64           `json:"amount"`
	Type      TransactionType `json:"type"`
	Metadata  string          `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ─── Action Costs ───────────────────────────────────────────────────────────

// Mutating action types gated by the credit ledger.
const (
	ActionAddProduct    = "ADD_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"
	ActionStartLive     = "START_LIVE"
	ActionProcessOrder  = "PROCESS_ORDER"
)

// DefaultActionCosts returns the default action-type → credit cost table.
// Costs are non-negative; a zero cost means the action is free but still
// recorded. Unknown action types are rejected, never treated as free.
func DefaultActionCosts() map[string]int64 {
	return map[string]int64{
		ActionAddProduct:    1,
		ActionUpdateProduct: 1,
		ActionDeleteProduct: 0,
		ActionStartLive:     2,
		ActionProcessOrder:  1,
	}
}

// CreditPackage is a purchasable credit bundle.
type CreditPackage struct {
	Type    string `json:"type"`
	Credits int64  `json:"credits"`
	PriceFC int64  `json:"price_fc"` // price in francs CFA
}
