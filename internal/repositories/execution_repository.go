package repositories

import (
	"context"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type ExecutionRepository struct {
	DB DBTX
}

func NewExecutionRepository(db DBTX) *ExecutionRepository {
	return &ExecutionRepository{DB: db}
}

func (r *ExecutionRepository) WithTx(tx pgx.Tx) *ExecutionRepository {
	return &ExecutionRepository{DB: tx}
}

const executionColumns = `id, order_id, technician_id, started_at, ended_at, work_performed,
	confirmation, rejection_reason, created_at, updated_at`

func scanExecution(row pgx.Row) (*models.Execution, error) {
	var e models.Execution
	err := row.Scan(&e.ID, &e.OrderID, &e.TechnicianID, &e.StartedAt, &e.EndedAt, &e.WorkPerformed,
		&e.Confirmation, &e.RejectionReason, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExecutionRepository) Create(ctx context.Context, e *models.Execution) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO executions(order_id, technician_id, started_at, ended_at, work_performed, confirmation)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at, updated_at`,
		e.OrderID, e.TechnicianID, e.StartedAt.UTC(), e.EndedAt, e.WorkPerformed, e.Confirmation,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *ExecutionRepository) ListByOrder(ctx context.Context, orderID int) ([]*models.Execution, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE order_id=$1 ORDER BY started_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestPending returns the most recent execution awaiting client confirmation.
func (r *ExecutionRepository) LatestPending(ctx context.Context, orderID int) (*models.Execution, error) {
	return scanExecution(r.DB.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM executions
         WHERE order_id=$1 AND confirmation='Pendiente'
         ORDER BY started_at DESC, id DESC LIMIT 1 FOR UPDATE`, orderID))
}

func (r *ExecutionRepository) SetConfirmation(ctx context.Context, id int, confirmation string, reason *string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE executions SET confirmation=$1, rejection_reason=$2, updated_at=NOW() WHERE id=$3`,
		confirmation, reason, id)
	return err
}

// RejectPending closes every execution of the order still awaiting
// confirmation, returning how many rows changed.
func (r *ExecutionRepository) RejectPending(ctx context.Context, orderID int, reason string) (int64, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE executions SET confirmation='Rechazada', rejection_reason=$2, updated_at=NOW()
         WHERE order_id=$1 AND confirmation='Pendiente'`, orderID, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
