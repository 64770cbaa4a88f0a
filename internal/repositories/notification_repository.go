package repositories

import (
	"context"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type NotificationRepository struct {
	DB DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) WithTx(tx pgx.Tx) *NotificationRepository {
	return &NotificationRepository{DB: tx}
}

const insertNotification = `
	INSERT INTO notifications(user_id, order_id, type, message)
	VALUES($1, $2, $3, $4)
	RETURNING id, sent_at`

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.DB.QueryRow(ctx, insertNotification, n.UserID, n.OrderID, n.Type, n.Message).
		Scan(&n.ID, &n.SentAt)
}

// CreateBatch inserts all notifications in one round trip, filling in ids.
// Run it on a transaction to make the batch all-or-nothing.
func (r *NotificationRepository) CreateBatch(ctx context.Context, list []*models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range list {
		batch.Queue(insertNotification, n.UserID, n.OrderID, n.Type, n.Message)
	}

	results := r.DB.SendBatch(ctx, batch)
	for _, n := range list {
		if err := results.QueryRow().Scan(&n.ID, &n.SentAt); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}

// ListByUser returns a page of the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]*models.Notification, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, user_id, order_id, type, message, sent_at, read
         FROM notifications
         WHERE user_id=$1
         ORDER BY sent_at DESC, id DESC
         LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Message, &n.SentAt, &n.Read); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND NOT read`, userID).Scan(&count)
	return count, err
}

// MarkRead marks one of the user's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE notifications SET read=TRUE WHERE user_id=$1 AND NOT read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
