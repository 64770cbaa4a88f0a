package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BackupTables lists the exported tables in restore order (parents first).
var BackupTables = []string{"users", "orders", "appointments", "executions", "notifications", "audit_logs"}

// exportQueries never select password hashes.
var exportQueries = map[string]string{
	"users": `SELECT id, name, username, email, phone, role, is_active, failed_logins,
	                 last_login_at, created_at, updated_at FROM users ORDER BY id`,
	"orders":        `SELECT * FROM orders ORDER BY id`,
	"appointments":  `SELECT * FROM appointments ORDER BY id`,
	"executions":    `SELECT * FROM executions ORDER BY id`,
	"notifications": `SELECT * FROM notifications ORDER BY id`,
	"audit_logs":    `SELECT * FROM audit_logs ORDER BY id`,
}

// Restored users get an unusable password hash and stay inactive until an
// admin resets them.
var restoreQueries = map[string]string{
	"users": `INSERT INTO users (id, name, username, email, phone, role, password_hash, is_active,
	                             failed_logins, last_login_at, created_at, updated_at)
	          SELECT id, name, username, email, phone, role, '!restored', FALSE,
	                 COALESCE(failed_logins, 0), last_login_at, COALESCE(created_at, NOW()), COALESCE(updated_at, NOW())
	          FROM json_populate_recordset(NULL::users, $1::json)
	          ON CONFLICT (id) DO NOTHING`,
	"orders":        `INSERT INTO orders SELECT * FROM json_populate_recordset(NULL::orders, $1::json) ON CONFLICT (id) DO NOTHING`,
	"appointments":  `INSERT INTO appointments SELECT * FROM json_populate_recordset(NULL::appointments, $1::json) ON CONFLICT (id) DO NOTHING`,
	"executions":    `INSERT INTO executions SELECT * FROM json_populate_recordset(NULL::executions, $1::json) ON CONFLICT (id) DO NOTHING`,
	"notifications": `INSERT INTO notifications SELECT * FROM json_populate_recordset(NULL::notifications, $1::json) ON CONFLICT (id) DO NOTHING`,
	"audit_logs":    `INSERT INTO audit_logs SELECT * FROM json_populate_recordset(NULL::audit_logs, $1::json) ON CONFLICT (id) DO NOTHING`,
}

type BackupRepository struct {
	DB DBTX
}

func NewBackupRepository(db DBTX) *BackupRepository {
	return &BackupRepository{DB: db}
}

func (r *BackupRepository) WithTx(tx pgx.Tx) *BackupRepository {
	return &BackupRepository{DB: tx}
}

// ExportTable returns every row of table as a JSON array.
func (r *BackupRepository) ExportTable(ctx context.Context, table string) (json.RawMessage, error) {
	query, ok := exportQueries[table]
	if !ok {
		return nil, fmt.Errorf("table %q is not exportable", table)
	}
	var data []byte
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(json_agg(t), '[]'::json) FROM (`+query+`) t`).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// RestoreTable inserts rows that do not exist yet and returns how many were
// inserted. The table's id sequence is moved past the restored ids.
func (r *BackupRepository) RestoreTable(ctx context.Context, table string, rows json.RawMessage) (int64, error) {
	query, ok := restoreQueries[table]
	if !ok {
		return 0, fmt.Errorf("table %q is not restorable", table)
	}
	tag, err := r.DB.Exec(ctx, query, string(rows))
	if err != nil {
		return 0, fmt.Errorf("restore %s: %w", table, err)
	}
	if _, err := r.DB.Exec(ctx,
		fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT COALESCE(MAX(id), 0) FROM %s), 1))`, table, table),
	); err != nil {
		return 0, fmt.Errorf("reset %s sequence: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// DatabaseSize returns pg_database_size of the current database in bytes.
func (r *BackupRepository) DatabaseSize(ctx context.Context) (int64, error) {
	var size int64
	err := r.DB.QueryRow(ctx, `SELECT pg_database_size(current_database())`).Scan(&size)
	return size, err
}
