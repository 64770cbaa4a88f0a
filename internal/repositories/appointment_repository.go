package repositories

import (
	"context"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type AppointmentRepository struct {
	DB DBTX
}

func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

func (r *AppointmentRepository) WithTx(tx pgx.Tx) *AppointmentRepository {
	return &AppointmentRepository{DB: tx}
}

const appointmentColumns = `id, order_id, scheduled_at, status, requested_at, reason, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.ID, &a.OrderID, &a.ScheduledAt, &a.Status, &a.RequestedAt, &a.Reason,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO appointments(order_id, scheduled_at, status, created_by)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		a.OrderID, a.ScheduledAt.UTC(), a.Status, a.CreatedBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AppointmentRepository) Get(ctx context.Context, id int) (*models.Appointment, error) {
	return scanAppointment(r.DB.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id))
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, id int) (*models.Appointment, error) {
	return scanAppointment(r.DB.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id=$1 FOR UPDATE`, id))
}

func (r *AppointmentRepository) ListByOrder(ctx context.Context, orderID int) ([]*models.Appointment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE order_id=$1 ORDER BY scheduled_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update writes status, dates and reason of an appointment.
func (r *AppointmentRepository) Update(ctx context.Context, a *models.Appointment) error {
	return r.DB.QueryRow(ctx,
		`UPDATE appointments
         SET status=$1, scheduled_at=$2, requested_at=$3, reason=$4, updated_at=NOW()
         WHERE id=$5
         RETURNING updated_at`,
		a.Status, a.ScheduledAt.UTC(), a.RequestedAt, a.Reason, a.ID,
	).Scan(&a.UpdatedAt)
}

// MoveOrderAppointments sets every appointment of the order currently in one
// of from to status to, returning how many rows changed.
func (r *AppointmentRepository) MoveOrderAppointments(ctx context.Context, orderID int, from []string, to string) (int64, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE appointments SET status=$1, updated_at=NOW()
         WHERE order_id=$2 AND status = ANY($3)`, to, orderID, from)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// HasActive reports whether the order has an appointment in one of statuses.
func (r *AppointmentRepository) HasActive(ctx context.Context, orderID int, statuses []string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE order_id=$1 AND status = ANY($2))`,
		orderID, statuses).Scan(&exists)
	return exists, err
}
