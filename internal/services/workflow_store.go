package services

import (
	"context"
	"fmt"

	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/workflow"

	"github.com/jackc/pgx/v5"
)

// WorkflowStore is everything an order or appointment step reads and writes
// while its order row is locked.
type WorkflowStore interface {
	LockOrder(ctx context.Context, id int) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	GetUser(ctx context.Context, id int) (*models.User, error)

	GetAppointment(ctx context.Context, id int) (*models.Appointment, error)
	LockAppointment(ctx context.Context, id int) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
	MoveAppointments(ctx context.Context, orderID int, from []workflow.AppointmentStatus, to workflow.AppointmentStatus) (int64, error)
	HasLiveAppointment(ctx context.Context, orderID int) (bool, error)

	CreateExecution(ctx context.Context, e *models.Execution) error
	LatestPendingExecution(ctx context.Context, orderID int) (*models.Execution, error)
	SetExecutionConfirmation(ctx context.Context, id int, c workflow.ExecutionConfirmation, reason *string) error
	RejectPendingExecutions(ctx context.Context, orderID int, reason string) (int64, error)

	ActiveUserIDs(ctx context.Context, role workflow.Role) ([]int, error)
	Contacts(ctx context.Context, ids []int) (map[int]repositories.Recipient, error)
	CreateNotifications(ctx context.Context, list []*models.Notification) error
	EnqueueEmails(ctx context.Context, msgs []*models.OutboxMessage) error

	CreateAudit(ctx context.Context, l *models.AuditLog) error
}

// WorkflowTx runs fn against a store bound to a single transaction. Nothing
// fn writes is kept unless fn returns nil.
type WorkflowTx func(ctx context.Context, fn func(st WorkflowStore) error) error

// PostgresWorkflow opens one pgx transaction per call.
func PostgresWorkflow(db repositories.TxBeginner) WorkflowTx {
	return func(ctx context.Context, fn func(st WorkflowStore) error) error {
		return repositories.InTx(ctx, db, func(tx pgx.Tx) error {
			return fn(newTxStore(tx))
		})
	}
}

type txStore struct {
	orders        *repositories.OrderRepository
	appointments  *repositories.AppointmentRepository
	executions    *repositories.ExecutionRepository
	users         *repositories.UserRepository
	notifications *repositories.NotificationRepository
	outbox        *repositories.OutboxRepository
	audit         *repositories.AuditLogRepository
}

func newTxStore(tx pgx.Tx) *txStore {
	return &txStore{
		orders:        repositories.NewOrderRepository(tx),
		appointments:  repositories.NewAppointmentRepository(tx),
		executions:    repositories.NewExecutionRepository(tx),
		users:         repositories.NewUserRepository(tx),
		notifications: repositories.NewNotificationRepository(tx),
		outbox:        repositories.NewOutboxRepository(tx),
		audit:         repositories.NewAuditLogRepository(tx),
	}
}

func appointmentLabels(statuses []workflow.AppointmentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func (s *txStore) LockOrder(ctx context.Context, id int) (*models.Order, error) {
	return s.orders.GetForUpdate(ctx, id)
}

func (s *txStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	return s.orders.UpdateWorkflow(ctx, o)
}

func (s *txStore) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.users.Get(ctx, id)
}

func (s *txStore) GetAppointment(ctx context.Context, id int) (*models.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

func (s *txStore) LockAppointment(ctx context.Context, id int) (*models.Appointment, error) {
	return s.appointments.GetForUpdate(ctx, id)
}

func (s *txStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return s.appointments.Create(ctx, a)
}

func (s *txStore) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	return s.appointments.Update(ctx, a)
}

func (s *txStore) MoveAppointments(ctx context.Context, orderID int, from []workflow.AppointmentStatus, to workflow.AppointmentStatus) (int64, error) {
	return s.appointments.MoveOrderAppointments(ctx, orderID, appointmentLabels(from), string(to))
}

func (s *txStore) HasLiveAppointment(ctx context.Context, orderID int) (bool, error) {
	return s.appointments.HasActive(ctx, orderID, appointmentLabels(workflow.LiveAppointmentStatuses))
}

func (s *txStore) CreateExecution(ctx context.Context, e *models.Execution) error {
	return s.executions.Create(ctx, e)
}

func (s *txStore) LatestPendingExecution(ctx context.Context, orderID int) (*models.Execution, error) {
	return s.executions.LatestPending(ctx, orderID)
}

func (s *txStore) SetExecutionConfirmation(ctx context.Context, id int, c workflow.ExecutionConfirmation, reason *string) error {
	return s.executions.SetConfirmation(ctx, id, string(c), reason)
}

func (s *txStore) RejectPendingExecutions(ctx context.Context, orderID int, reason string) (int64, error) {
	return s.executions.RejectPending(ctx, orderID, reason)
}

func (s *txStore) ActiveUserIDs(ctx context.Context, role workflow.Role) ([]int, error) {
	return s.users.ActiveIDsByRole(ctx, string(role))
}

func (s *txStore) Contacts(ctx context.Context, ids []int) (map[int]repositories.Recipient, error) {
	return s.users.Contacts(ctx, ids)
}

func (s *txStore) CreateNotifications(ctx context.Context, list []*models.Notification) error {
	return s.notifications.CreateBatch(ctx, list)
}

func (s *txStore) EnqueueEmails(ctx context.Context, msgs []*models.OutboxMessage) error {
	return s.outbox.EnqueueBatch(ctx, msgs)
}

func (s *txStore) CreateAudit(ctx context.Context, l *models.AuditLog) error {
	return s.audit.Create(ctx, l)
}

// emitNotices writes the notices of an order event, plus their email copies
// in the outbox, through the caller's store. The returned rows are handed to
// Deliver once the transaction commits.
func emitNotices(ctx context.Context, st WorkflowStore, order *models.Order, notices []workflow.Notice, actorID int) ([]*models.Notification, error) {
	if len(notices) == 0 {
		return nil, nil
	}

	var coordinators []int
	for _, n := range notices {
		if n.Audience == workflow.AudienceCoordinators {
			ids, err := st.ActiveUserIDs(ctx, workflow.RoleCoordinator)
			if err != nil {
				return nil, fmt.Errorf("load coordinators: %w", err)
			}
			coordinators = ids
			break
		}
	}

	list := buildNotifications(order, notices, coordinators, actorID)
	if len(list) == 0 {
		return nil, nil
	}
	if err := st.CreateNotifications(ctx, list); err != nil {
		return nil, fmt.Errorf("insert notifications: %w", err)
	}

	ids := make([]int, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.UserID)
	}
	contacts, err := st.Contacts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	if err := st.EnqueueEmails(ctx, outboxMessages(list, contacts)); err != nil {
		return nil, fmt.Errorf("enqueue emails: %w", err)
	}
	return list, nil
}
