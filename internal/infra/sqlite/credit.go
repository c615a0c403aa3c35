package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// ErrBalanceWouldGoNegative is returned by ApplyTransaction when a debit
// exceeds the seller's balance. The ledger maps it to the typed
// InsufficientCreditsError carrying balance and required cost.
var ErrBalanceWouldGoNegative = errors.New("debit exceeds seller balance")

// ─── Credit Operations ──────────────────────────────────────────────────────

// GetBalance returns the seller's current balance. Unknown sellers have a
// zero balance and no row.
func (db *DB) GetBalance(sellerID string) (int64, error) {
	var balance int64
	err := db.db.QueryRow(`
		SELECT balance FROM seller_balances WHERE seller_id = ?
	`, sellerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// ApplyTransaction atomically appends a transaction and adjusts the seller's
// balance inside one SQL transaction. A negative amount that would take the
// balance below zero fails with ErrBalanceWouldGoNegative and mutates nothing.
// Returns the balance after the transaction.
func (db *DB) ApplyTransaction(txn domain.CreditTransaction) (int64, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRow(`
		SELECT balance FROM seller_balances WHERE seller_id = ?
	`, txn.SellerID).Scan(&balance)
	if err == sql.ErrNoRows {
		balance = 0
		if _, err := tx.Exec(`
			INSERT INTO seller_balances (seller_id, balance) VALUES (?, 0)
		`, txn.SellerID); err != nil {
			return 0, fmt.Errorf("init balance row: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}

	newBalance := balance + txn.Amount
	if newBalance < 0 {
		return balance, ErrBalanceWouldGoNegative
	}

	if _, err := tx.Exec(`
		UPDATE seller_balances SET balance = ?, updated_at = datetime('now')
		WHERE seller_id = ?
	`, newBalance, txn.SellerID); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO credit_transactions (id, seller_id, amount, type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.SellerID, txn.Amount, string(txn.Type), txn.Metadata,
		txn.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit credit tx: %w", err)
	}
	return newBalance, nil
}

// ListTransactions returns the seller's transaction history, newest first.
func (db *DB) ListTransactions(sellerID string, limit int) ([]domain.CreditTransaction, error) {
	rows, err := db.db.Query(`
		SELECT id, seller_id, amount, type, metadata, created_at
		FROM credit_transactions WHERE seller_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, sellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CreditTransaction
	for rows.Next() {
		var t domain.CreditTransaction
		var typ, createdStr string
		if err := rows.Scan(&t.ID, &t.SellerID, &t.Amount, &typ, &t.Metadata, &createdStr); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		result = append(result, t)
	}
	return result, rows.Err()
}

// SumTransactions returns the sum of all transaction amounts for a seller.
// Used by the reconciliation check: balance == sum over the log.
func (db *DB) SumTransactions(sellerID string) (int64, error) {
	var sum sql.NullInt64
	err := db.db.QueryRow(`
		SELECT SUM(amount) FROM credit_transactions WHERE seller_id = ?
	`, sellerID).Scan(&sum)
	if !sum.Valid {
		return 0, err
	}
	return sum.Int64, err
}
