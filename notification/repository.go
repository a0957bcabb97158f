package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpazar/apperr"
)

// ErrNotFound is returned when no notification row matches.
var ErrNotFound = apperr.New(apperr.KindNotFound, "notification: not found", "Bildirim bulunamadı.")

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const notificationColumns = `id, user_id, message, is_read, read_at, created_at`

// Insert persists a notification as part of tx.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, userID, text string) (Notification, error) {
	n, err := scanNotification(tx.QueryRow(ctx, `
INSERT INTO notifications (user_id, message)
VALUES ($1, $2)
RETURNING `+notificationColumns, userID, text))
	if err != nil {
		return Notification{}, fmt.Errorf("notification: insert: %w", err)
	}
	return n, nil
}

// Enqueue appends an outbox row inside tx.
func (r *PGRepository) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification: marshal outbox payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`, topic, body); err != nil {
		return fmt.Errorf("notification: enqueue outbox: %w", err)
	}
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0, 8)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("notification: scan: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate: %w", err)
	}
	return items, nil
}

// MarkRead flips the read flag. Marking an already read notification is a no-op.
func (r *PGRepository) MarkRead(ctx context.Context, id string) (Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx, `
UPDATE notifications
SET is_read = true,
    read_at = COALESCE(read_at, now())
WHERE id = $1
RETURNING `+notificationColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, fmt.Errorf("notification: mark read: %w", err)
	}
	return n, nil
}

// ClaimPending locks up to limit due pending rows of topic. A row that has
// failed before is due once retryDelay times its attempt count has passed
// since the last attempt. Rows locked by other dispatchers are skipped.
func (r *PGRepository) ClaimPending(ctx context.Context, tx pgx.Tx, topic string, limit int, retryDelay time.Duration) ([]OutboxMessage, error) {
	rows, err := tx.Query(ctx, `
SELECT id, topic, payload, status, attempts, last_attempt, created_at
FROM outbox
WHERE status = 'pending' AND topic = $1
  AND (last_attempt IS NULL OR last_attempt <= now() - make_interval(secs => $3::double precision * attempts))
ORDER BY created_at
FOR UPDATE SKIP LOCKED
LIMIT $2`, topic, limit, retryDelay.Seconds())
	if err != nil {
		return nil, fmt.Errorf("notification: claim outbox: %w", err)
	}
	defer rows.Close()

	msgs := make([]OutboxMessage, 0, limit)
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Status, &m.Attempts, &m.LastAttempt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("notification: scan outbox: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate outbox: %w", err)
	}
	return msgs, nil
}

// MarkProcessed records a successful delivery.
func (r *PGRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error {
	if _, err := tx.Exec(ctx, `
UPDATE outbox
SET status = 'processed', attempts = attempts + 1, last_attempt = now(), last_error = NULL
WHERE id = $1`, id); err != nil {
		return fmt.Errorf("notification: mark processed: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt. The row goes dead once attempts
// reach maxAttempts or when dead is set.
func (r *PGRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id, reason string, maxAttempts int, dead bool) error {
	if _, err := tx.Exec(ctx, `
UPDATE outbox
SET attempts = attempts + 1,
    last_attempt = now(),
    last_error = $2,
    status = CASE WHEN $4 OR attempts + 1 >= $3 THEN 'dead' ELSE 'pending' END
WHERE id = $1`, id, reason, maxAttempts, dead); err != nil {
		return fmt.Errorf("notification: mark failed: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
		return Notification{}, err
	}
	return n, nil
}
