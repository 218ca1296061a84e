// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"portal-notifier/internal/models"

	"github.com/google/uuid"
)

// NotificationStore is the data-access layer for pending_notifications. The
// dispatcher depends only on select-with-limit-and-order plus row-level
// conditional updates; there are no cross-row transactions.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const selectColumns = `id, recipient_id, notification_type, context_data, send_at, status, attempt_count, COALESCE(last_error, ''), COALESCE(gateway_message_id, ''), sent_at, created_at`

// SelectDue returns up to limit eligible rows, oldest send_at first. It is
// read-only: rows are not marked in-flight here, the claim happens per item.
func (s *NotificationStore) SelectDue(ctx context.Context, now time.Time, limit int) ([]models.PendingNotification, error) {
	query := `SELECT ` + selectColumns + `
		FROM pending_notifications
		WHERE status = 'pending' AND send_at <= $1
		ORDER BY send_at ASC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due notifications: %w", err)
	}
	defer rows.Close()

	var out []models.PendingNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Claim atomically moves a row from pending to processing and bumps its
// attempt count. It returns false when another cycle already owns the row;
// the caller must then skip the item without treating it as a failure.
func (s *NotificationStore) Claim(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_notifications
		 SET status = 'processing', attempt_count = attempt_count + 1
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("claim notification %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkSent records a successful delivery.
func (s *NotificationStore) MarkSent(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_notifications
		 SET status = 'sent', gateway_message_id = $2, sent_at = $3, last_error = NULL
		 WHERE id = $1 AND status = 'processing'`,
		id, gatewayMessageID, sentAt)
	if err != nil {
		return fmt.Errorf("mark sent %s: %w", id, err)
	}
	return nil
}

// MarkFailed records a terminal failure with the reason kept for audit.
func (s *NotificationStore) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_notifications
		 SET status = 'failed', last_error = $2
		 WHERE id = $1 AND status = 'processing'`,
		id, reason)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", id, err)
	}
	return nil
}

// Release returns a transiently-failed row to pending with send_at pushed out
// by the computed backoff, so the next eligible tick picks it up again.
func (s *NotificationStore) Release(ctx context.Context, id string, nextSendAt time.Time, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_notifications
		 SET status = 'pending', send_at = $2, last_error = $3
		 WHERE id = $1 AND status = 'processing'`,
		id, nextSendAt, reason)
	if err != nil {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}

// ReactivateFailed moves failed rows older than cutoff back to pending with a
// fresh attempt budget. Only called when dispatch.reactivate_failed is on.
func (s *NotificationStore) ReactivateFailed(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_notifications
		 SET status = 'pending', attempt_count = 0, send_at = $2
		 WHERE status = 'failed' AND created_at < $1`,
		cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("reactivate failed rows: %w", err)
	}
	return res.RowsAffected()
}

// Insert creates a new pending row. Used by the reminder producer; the
// dispatcher itself never creates work.
func (s *NotificationStore) Insert(ctx context.Context, n *models.PendingNotification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	payload, err := json.Marshal(n.ContextData)
	if err != nil {
		return fmt.Errorf("marshal context data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_notifications
		 (id, recipient_id, notification_type, context_data, send_at, status, attempt_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6)`,
		n.ID, n.RecipientID, n.NotificationType, payload, n.SendAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Get fetches a single row by id.
func (s *NotificationStore) Get(ctx context.Context, id string) (*models.PendingNotification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM pending_notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(r rowScanner) (models.PendingNotification, error) {
	var (
		n       models.PendingNotification
		payload []byte
		sentAt  sql.NullTime
	)
	err := r.Scan(&n.ID, &n.RecipientID, &n.NotificationType, &payload, &n.SendAt,
		&n.Status, &n.AttemptCount, &n.LastError, &n.GatewayMessageID, &sentAt, &n.CreatedAt)
	if err != nil {
		return n, fmt.Errorf("scan notification: %w", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &n.ContextData); err != nil {
			return n, fmt.Errorf("unmarshal context data: %w", err)
		}
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return n, nil
}
