package sqlite

import (
	"database/sql"
	"time"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// ─── Notification Retry Ledger ──────────────────────────────────────────────

// InsertNotification records an undelivered seller-scoped event.
func (db *DB) InsertNotification(n domain.Notification) error {
	_, err := db.db.Exec(`
		INSERT INTO notifications (id, seller_id, type, payload, read, sent, retry_count, max_retries, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?, ?)
	`, n.ID, n.SellerID, n.Type, string(n.Payload), n.RetryCount, n.MaxRetries,
		n.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// PendingNotifications returns the seller's undelivered notifications that
// still have retry budget, oldest first. FIFO order here is what preserves
// per-seller delivery order across retries.
func (db *DB) PendingNotifications(sellerID string) ([]domain.Notification, error) {
	rows, err := db.db.Query(`
		SELECT id, seller_id, type, payload, read, sent, retry_count, max_retries, created_at, sent_at
		FROM notifications
		WHERE seller_id = ? AND sent = 0 AND retry_count < max_retries
		ORDER BY created_at ASC, rowid ASC
	`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// PendingSellers returns the distinct sellers that have retryable
// undelivered notifications. Drives the background sweep.
func (db *DB) PendingSellers() ([]string, error) {
	rows, err := db.db.Query(`
		SELECT DISTINCT seller_id FROM notifications
		WHERE sent = 0 AND retry_count < max_retries
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sellers []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}

// HasPending reports whether the seller has retryable undelivered
// notifications. Fresh events must queue behind these to keep FIFO order.
func (db *DB) HasPending(sellerID string) (bool, error) {
	var count int
	err := db.db.QueryRow(`
		SELECT COUNT(*) FROM notifications
		WHERE seller_id = ? AND sent = 0 AND retry_count < max_retries
	`, sellerID).Scan(&count)
	return count > 0, err
}

// MarkNotificationSent marks a notification delivered.
func (db *DB) MarkNotificationSent(id string) error {
	_, err := db.db.Exec(`
		UPDATE notifications SET sent = 1, sent_at = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

// IncrementNotificationRetry records a failed delivery attempt.
func (db *DB) IncrementNotificationRetry(id string) error {
	_, err := db.db.Exec(`
		UPDATE notifications SET retry_count = retry_count + 1 WHERE id = ?
	`, id)
	return err
}

// MarkNotificationRead marks a notification read by the seller.
func (db *DB) MarkNotificationRead(id string) error {
	_, err := db.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

// ListNotifications returns the seller's notification inbox, newest first.
// Dead notifications (retry budget exhausted, never delivered) are included —
// they are reported to the seller, not silently discarded.
func (db *DB) ListNotifications(sellerID string, limit int) ([]domain.Notification, error) {
	rows, err := db.db.Query(`
		SELECT id, seller_id, type, payload, read, sent, retry_count, max_retries, created_at, sent_at
		FROM notifications WHERE seller_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, sellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var payload, createdStr string
		var readInt, sentInt int
		var sentStr sql.NullString
		if err := rows.Scan(&n.ID, &n.SellerID, &n.Type, &payload, &readInt, &sentInt,
			&n.RetryCount, &n.MaxRetries, &createdStr, &sentStr); err != nil {
			return nil, err
		}
		if payload != "" {
			n.Payload = []byte(payload)
		}
		n.Read = readInt == 1
		n.Sent = sentInt == 1
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		if sentStr.Valid {
			t, _ := time.Parse(time.RFC3339Nano, sentStr.String)
			n.SentAt = &t
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
