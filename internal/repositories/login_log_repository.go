package repositories

import (
	"context"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type LoginLogRepository struct {
	DB DBTX
}

func NewLoginLogRepository(db DBTX) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

func (r *LoginLogRepository) Create(ctx context.Context, l *models.LoginLog) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO login_logs(user_id, identifier, success, token_id, ip_address, user_agent)
         VALUES($1, $2, $3, NULLIF($4, ''), $5, $6)
         RETURNING id, login_time`,
		l.UserID, l.Identifier, l.Success, l.TokenID, l.IPAddress, l.UserAgent,
	).Scan(&l.ID, &l.LoginTime)
}

// RecordLogout closes the session opened with tokenID.
func (r *LoginLogRepository) RecordLogout(ctx context.Context, tokenID string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE login_logs SET logout_time=NOW() WHERE token_id=$1 AND logout_time IS NULL`, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *LoginLogRepository) List(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT l.id, l.user_id, COALESCE(u.name, ''), l.identifier, l.success,
		        COALESCE(l.ip_address, ''), COALESCE(l.user_agent, ''), l.login_time, l.logout_time
         FROM login_logs l
         LEFT JOIN users u ON u.id = l.user_id
         ORDER BY l.login_time DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.LoginLog
	for rows.Next() {
		var l models.LoginLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserName, &l.Identifier, &l.Success,
			&l.IPAddress, &l.UserAgent, &l.LoginTime, &l.LogoutTime); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
