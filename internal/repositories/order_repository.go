package repositories

import (
	"context"

	"gestion-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	DB DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{DB: db}
}

func (r *OrderRepository) WithTx(tx pgx.Tx) *OrderRepository {
	return &OrderRepository{DB: tx}
}

const orderSelect = `
	SELECT o.id, o.number, o.client_id, COALESCE(c.name, ''), o.technician_id, t.name,
	       o.service_type, o.description, o.priority, o.address, o.status, o.impediment_reason,
	       o.requested_at, o.assigned_at, o.completed_at, o.updated_at
	FROM orders o
	LEFT JOIN users c ON c.id = o.client_id
	LEFT JOIN users t ON t.id = o.technician_id`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.Number, &o.ClientID, &o.ClientName, &o.TechnicianID, &o.TechnicianName,
		&o.ServiceType, &o.Description, &o.Priority, &o.Address, &o.Status, &o.ImpedimentReason,
		&o.RequestedAt, &o.AssignedAt, &o.CompletedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO orders(number, client_id, service_type, description, priority, address, status)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, requested_at, updated_at`,
		o.Number, o.ClientID, o.ServiceType, o.Description, o.Priority, o.Address, o.Status,
	).Scan(&o.ID, &o.RequestedAt, &o.UpdatedAt)
}

func (r *OrderRepository) Get(ctx context.Context, id int) (*models.Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id))
}

// GetForUpdate locks the order row until the surrounding transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id int) (*models.Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, orderSelect+` WHERE o.id=$1 FOR UPDATE OF o`, id))
}

// OrderScope restricts a listing to one client or one technician.
type OrderScope struct {
	ClientID     *int
	TechnicianID *int
}

func (r *OrderRepository) List(ctx context.Context, scope OrderScope, filter models.OrderFilter) ([]*models.Order, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, orderSelect+`
		WHERE ($1::int IS NULL OR o.client_id = $1)
		  AND ($2::int IS NULL OR o.technician_id = $2)
		  AND ($3 = '' OR o.status = $3)
		ORDER BY o.requested_at DESC, o.id DESC
		LIMIT $4 OFFSET $5`,
		scope.ClientID, scope.TechnicianID, filter.Status, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateWorkflow persists the fields a workflow action can change.
func (r *OrderRepository) UpdateWorkflow(ctx context.Context, o *models.Order) error {
	return r.DB.QueryRow(ctx,
		`UPDATE orders
         SET status=$1, technician_id=$2, impediment_reason=$3,
             assigned_at=$4, completed_at=$5, updated_at=NOW()
         WHERE id=$6
         RETURNING updated_at`,
		o.Status, o.TechnicianID, o.ImpedimentReason, o.AssignedAt, o.CompletedAt, o.ID,
	).Scan(&o.UpdatedAt)
}

// NumberExists is used when generating order numbers.
func (r *OrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE number=$1)`, number).Scan(&exists)
	return exists, err
}
