package repositories

import (
	"context"
	"time"

	"gestion-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OutboxRepository struct {
	DB DBTX
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

func (r *OutboxRepository) WithTx(tx pgx.Tx) *OutboxRepository {
	return &OutboxRepository{DB: tx}
}

const insertOutbox = `
	INSERT INTO notification_outbox(id, notification_id, recipient, subject, body, status, next_attempt_at)
	VALUES($1, $2, $3, $4, $5, 'pending', NOW())`

// EnqueueBatch queues email copies in one round trip.
func (r *OutboxRepository) EnqueueBatch(ctx context.Context, msgs []*models.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range msgs {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.Status = models.OutboxPending
		batch.Queue(insertOutbox, m.ID, m.NotificationID, m.Recipient, m.Subject, m.Body)
	}
	return r.DB.SendBatch(ctx, batch).Close()
}

// ClaimDue leases up to limit pending messages whose next attempt is due by
// moving next_attempt_at to now+lease, and returns them. The lease is taken
// in one statement, so no transaction stays open while the messages are
// sent. Rows locked by another dispatcher are skipped.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.OutboxMessage, error) {
	rows, err := r.DB.Query(ctx,
		`UPDATE notification_outbox o SET next_attempt_at = $2
         FROM (SELECT id FROM notification_outbox
               WHERE status='pending' AND next_attempt_at <= $1
               ORDER BY next_attempt_at
               LIMIT $3
               FOR UPDATE SKIP LOCKED) due
         WHERE o.id = due.id
         RETURNING o.id, o.notification_id, o.recipient, o.subject, o.body, o.status,
                   o.attempts, o.next_attempt_at, o.last_error, o.created_at`,
		now, now.Add(lease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		if err := rows.Scan(&m.ID, &m.NotificationID, &m.Recipient, &m.Subject, &m.Body, &m.Status,
			&m.Attempts, &m.NextAttemptAt, &m.LastError, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE notification_outbox SET status='sent', attempts=attempts+1, sent_at=NOW(), last_error=NULL WHERE id=$1`, id)
	return err
}

// MarkRetry records a failed attempt and schedules the next one.
func (r *OutboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE notification_outbox SET attempts=attempts+1, next_attempt_at=$2, last_error=$3 WHERE id=$1`,
		id, next, lastErr)
	return err
}

// MarkFailed gives up on a message.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE notification_outbox SET status='failed', attempts=attempts+1, last_error=$2 WHERE id=$1`,
		id, lastErr)
	return err
}

// CountByStatus feeds the outbox gauge on the metrics endpoint.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM notification_outbox GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
