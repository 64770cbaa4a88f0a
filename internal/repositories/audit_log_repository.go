package repositories

import (
	"context"
	"errors"
	"time"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

// AuditLogRepository only ever inserts and reads; audit rows are never
// updated or deleted.
type AuditLogRepository struct {
	DB DBTX
}

func NewAuditLogRepository(db DBTX) *AuditLogRepository {
	return &AuditLogRepository{DB: db}
}

func (r *AuditLogRepository) WithTx(tx pgx.Tx) *AuditLogRepository {
	return &AuditLogRepository{DB: tx}
}

func (r *AuditLogRepository) Create(ctx context.Context, l *models.AuditLog) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO audit_logs(user_id, order_id, action, description, ip_address)
         VALUES($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		l.UserID, l.OrderID, l.Action, l.Description, l.IPAddress,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *AuditLogRepository) List(ctx context.Context, f models.AuditLogFilter) ([]*models.AuditLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT a.id, a.user_id, u.name, a.order_id, a.action, a.description, a.ip_address, a.created_at
         FROM audit_logs a
         LEFT JOIN users u ON u.id = a.user_id
         WHERE ($1::int IS NULL OR a.user_id = $1)
           AND ($2::int IS NULL OR a.order_id = $2)
           AND ($3 = '' OR a.action = $3)
         ORDER BY a.created_at DESC, a.id DESC
         LIMIT $4`, f.UserID, f.OrderID, f.Action, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserName, &l.OrderID, &l.Action, &l.Description,
			&l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// LastAt returns when action was last recorded, or nil if never.
func (r *AuditLogRepository) LastAt(ctx context.Context, action string) (*time.Time, error) {
	var at time.Time
	err := r.DB.QueryRow(ctx,
		`SELECT created_at FROM audit_logs WHERE action=$1 ORDER BY created_at DESC LIMIT 1`, action).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}
