package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testTxn(sellerID string, amount int64, typ domain.TransactionType) domain.CreditTransaction {
	return domain.CreditTransaction{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Amount:    amount,
		Type:      typ,
		CreatedAt: time.Now(),
	}
}

// ─── Credit Operations ──────────────────────────────────────────────────────

func TestGetBalance_UnknownSeller(t *testing.T) {
	db := newTestDB(t)
	balance, err := db.GetBalance("nobody")
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0 for unknown seller", balance)
	}
}

func TestApplyTransaction_CreditThenDebit(t *testing.T) {
	db := newTestDB(t)

	balance, err := db.ApplyTransaction(testTxn("s1", 10, domain.TxPurchase))
	if err != nil {
		t.Fatalf("ApplyTransaction(+10) error: %v", err)
	}
	if balance != 10 {
		t.Errorf("balance = %d, want 10", balance)
	}

	balance, err = db.ApplyTransaction(testTxn("s1", -3, domain.TxConsume))
	if err != nil {
		t.Fatalf("ApplyTransaction(-3) error: %v", err)
	}
	if balance != 7 {
		t.Errorf("balance = %d, want 7", balance)
	}
}

func TestApplyTransaction_RejectsNegativeBalance(t *testing.T) {
	db := newTestDB(t)
	db.ApplyTransaction(testTxn("s1", 2, domain.TxPurchase))

	balance, err := db.ApplyTransaction(testTxn("s1", -3, domain.TxConsume))
	if !errors.Is(err, ErrBalanceWouldGoNegative) {
		t.Fatalf("err = %v, want ErrBalanceWouldGoNegative", err)
	}
	// Returned balance is the untouched current balance.
	if balance != 2 {
		t.Errorf("balance = %d, want 2", balance)
	}

	got, _ := db.GetBalance("s1")
	if got != 2 {
		t.Errorf("stored balance = %d, want 2 (unchanged)", got)
	}
}

func TestApplyTransaction_ReconciliationInvariant(t *testing.T) {
	db := newTestDB(t)
	amounts := []int64{10, -3, 5, -4, -1}
	for _, a := range amounts {
		typ := domain.TxPurchase
		if a < 0 {
			typ = domain.TxConsume
		}
		if _, err := db.ApplyTransaction(testTxn("s1", a, typ)); err != nil {
			t.Fatalf("ApplyTransaction(%d) error: %v", a, err)
		}
	}

	balance, _ := db.GetBalance("s1")
	sum, err := db.SumTransactions("s1")
	if err != nil {
		t.Fatalf("SumTransactions() error: %v", err)
	}
	if balance != sum {
		t.Errorf("balance = %d, sum of transactions = %d — invariant violated", balance, sum)
	}
	if balance != 7 {
		t.Errorf("balance = %d, want 7", balance)
	}
}

func TestListTransactions(t *testing.T) {
	db := newTestDB(t)
	db.ApplyTransaction(testTxn("s1", 10, domain.TxPurchase))
	db.ApplyTransaction(testTxn("s1", -1, domain.TxConsume))
	db.ApplyTransaction(testTxn("s2", 5, domain.TxPurchase))

	txns, err := db.ListTransactions("s1", 10)
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("len(txns) = %d, want 2", len(txns))
	}
	for _, txn := range txns {
		if txn.SellerID != "s1" {
			t.Errorf("transaction for seller %s leaked into s1 history", txn.SellerID)
		}
	}
}

// ─── Notification Retry Ledger ──────────────────────────────────────────────

func testNotif(sellerID, typ string) domain.Notification {
	return domain.Notification{
		ID:         uuid.NewString(),
		SellerID:   sellerID,
		Type:       typ,
		Payload:    []byte(`{"k":"v"}`),
		MaxRetries: 3,
		CreatedAt:  time.Now(),
	}
}

func TestNotifications_PendingFIFO(t *testing.T) {
	db := newTestDB(t)

	first := testNotif("s1", domain.EventOrderCreated)
	first.CreatedAt = time.Now().Add(-2 * time.Second)
	second := testNotif("s1", domain.EventOrderUpdated)
	second.CreatedAt = time.Now().Add(-1 * time.Second)

	// Insert out of order; pending must come back oldest first.
	if err := db.InsertNotification(second); err != nil {
		t.Fatalf("InsertNotification() error: %v", err)
	}
	if err := db.InsertNotification(first); err != nil {
		t.Fatalf("InsertNotification() error: %v", err)
	}

	pending, err := db.PendingNotifications("s1")
	if err != nil {
		t.Fatalf("PendingNotifications() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Errorf("pending order = [%s, %s], want oldest first", pending[0].Type, pending[1].Type)
	}
}

func TestNotifications_SentExcludedFromPending(t *testing.T) {
	db := newTestDB(t)
	n := testNotif("s1", domain.EventProductCreated)
	db.InsertNotification(n)

	if err := db.MarkNotificationSent(n.ID); err != nil {
		t.Fatalf("MarkNotificationSent() error: %v", err)
	}

	pending, _ := db.PendingNotifications("s1")
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0 after sent", len(pending))
	}

	all, _ := db.ListNotifications("s1", 10)
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
	if !all[0].Sent || all[0].SentAt == nil {
		t.Error("notification should be sent with a sent_at timestamp")
	}
}

func TestNotifications_RetryExhaustionExcludedFromPending(t *testing.T) {
	db := newTestDB(t)
	n := testNotif("s1", domain.EventProductCreated)
	db.InsertNotification(n)

	for i := 0; i < n.MaxRetries; i++ {
		if err := db.IncrementNotificationRetry(n.ID); err != nil {
			t.Fatalf("IncrementNotificationRetry() error: %v", err)
		}
	}

	pending, _ := db.PendingNotifications("s1")
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0 after retry exhaustion", len(pending))
	}

	// Dead notifications stay visible in the inbox.
	all, _ := db.ListNotifications("s1", 10)
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
	if !all[0].Dead() {
		t.Errorf("notification retry_count=%d max=%d should be dead", all[0].RetryCount, all[0].MaxRetries)
	}
}

func TestNotifications_HasPendingAndSellers(t *testing.T) {
	db := newTestDB(t)

	has, err := db.HasPending("s1")
	if err != nil {
		t.Fatalf("HasPending() error: %v", err)
	}
	if has {
		t.Error("HasPending = true for empty store")
	}

	db.InsertNotification(testNotif("s1", domain.EventLiveStarted))
	db.InsertNotification(testNotif("s2", domain.EventLiveEnded))

	has, _ = db.HasPending("s1")
	if !has {
		t.Error("HasPending = false, want true")
	}

	sellers, err := db.PendingSellers()
	if err != nil {
		t.Fatalf("PendingSellers() error: %v", err)
	}
	if len(sellers) != 2 {
		t.Errorf("len(sellers) = %d, want 2", len(sellers))
	}
}

func TestNotifications_MarkRead(t *testing.T) {
	db := newTestDB(t)
	n := testNotif("s1", domain.EventNotification)
	db.InsertNotification(n)

	if err := db.MarkNotificationRead(n.ID); err != nil {
		t.Fatalf("MarkNotificationRead() error: %v", err)
	}
	all, _ := db.ListNotifications("s1", 10)
	if !all[0].Read {
		t.Error("notification should be marked read")
	}
}
