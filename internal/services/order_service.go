package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/metrics"
	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/timeutil"
	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotOrderParty = fmt.Errorf("user is not a party to this order: %w", apperrors.ErrForbidden)

type OrderService struct {
	DB           repositories.TxBeginner
	Orders       *repositories.OrderRepository
	Appointments *repositories.AppointmentRepository
	Executions   *repositories.ExecutionRepository
	Users        *repositories.UserRepository
	Audit        *repositories.AuditLogRepository
	Notifier     *NotificationService
	Tx           WorkflowTx
}

func NewOrderService(db repositories.TxBeginner, orders *repositories.OrderRepository,
	appointments *repositories.AppointmentRepository, executions *repositories.ExecutionRepository,
	users *repositories.UserRepository, audit *repositories.AuditLogRepository, notifier *NotificationService) *OrderService {
	return &OrderService{
		DB:           db,
		Orders:       orders,
		Appointments: appointments,
		Executions:   executions,
		Users:        users,
		Audit:        audit,
		Notifier:     notifier,
		Tx:           PostgresWorkflow(db),
	}
}

// NewOrderNumber formats OS-YYYYMMDD-XXXXXX using the Caracas calendar day.
func NewOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("OS-%s-%s", timeutil.Now().Format("20060102"), suffix)
}

// canView reports whether actor may see order: clients their own orders,
// technicians the ones assigned to them, staff everything.
func canView(order *models.Order, actor Actor) bool {
	switch actor.Role {
	case workflow.RoleClient:
		return order.ClientID == actor.ID
	case workflow.RoleTechnician:
		return order.TechnicianID != nil && *order.TechnicianID == actor.ID
	}
	return true
}

// canAct adds ownership on top of the role rules: only the owning client
// confirms or rejects, only the assigned technician works the order.
func canAct(order *models.Order, actor Actor) bool {
	switch actor.Role {
	case workflow.RoleClient, workflow.RoleTechnician:
		return canView(order, actor)
	}
	return true
}

func orderState(order *models.Order) (workflow.OrderState, error) {
	status, err := workflow.ParseStatus(order.Status)
	if err != nil {
		return workflow.OrderState{}, err
	}
	return workflow.OrderState{Status: status, TechnicianID: order.TechnicianID}, nil
}

// Create opens a new order. Clients always create for themselves; agents and
// admins name the client.
func (s *OrderService) Create(ctx context.Context, actor Actor, req *models.CreateOrderRequest) (*models.Order, error) {
	if !actor.is(workflow.RoleClient, workflow.RoleAgent, workflow.RoleAdmin) {
		return nil, fmt.Errorf("%w: %s cannot create orders", workflow.ErrForbiddenRole, actor.Role)
	}
	v := validation.ValidateOrderRequest(req.ServiceType, req.Description, req.Address, req.Priority)

	clientID := actor.ID
	if actor.Role != workflow.RoleClient {
		clientID = req.ClientID
		if clientID == 0 {
			v["client_id"] = "Debe indicar el cliente"
		}
	}
	if !v.Empty() {
		return nil, v.Err()
	}
	priority, _ := workflow.ParsePriority(req.Priority)

	if actor.Role != workflow.RoleClient {
		client, err := s.Users.Get(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("load client %d: %w", clientID, err)
		}
		if client.Role != string(workflow.RoleClient) || !client.IsActive {
			return nil, validation.Violations{"client_id": "El usuario no es un cliente activo"}.Err()
		}
	}

	order := &models.Order{
		ClientID:    clientID,
		ServiceType: strings.TrimSpace(req.ServiceType),
		Description: strings.TrimSpace(req.Description),
		Priority:    string(priority),
		Address:     strings.TrimSpace(req.Address),
		Status:      string(workflow.StatusCreated),
	}

	err := repositories.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		orders := s.Orders.WithTx(tx)
		for attempt := 0; ; attempt++ {
			order.Number = NewOrderNumber()
			exists, err := orders.NumberExists(ctx, order.Number)
			if err != nil {
				return err
			}
			if !exists {
				break
			}
			if attempt == 4 {
				return fmt.Errorf("could not allocate order number: %w", apperrors.ErrConflict)
			}
		}
		if err := orders.Create(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID := order.ID
		return s.Audit.WithTx(tx).Create(ctx, &models.AuditLog{
			UserID:      actor.auditUser(),
			OrderID:     &orderID,
			Action:      workflow.AuditOrderCreated,
			Description: fmt.Sprintf("Orden %s creada (%s, prioridad %s)", order.Number, order.ServiceType, order.Priority),
			IPAddress:   actor.auditIP(),
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Orders] %s created by user %d for client %d", order.Number, actor.ID, clientID)
	return order, nil
}

// Get loads an order the actor is allowed to see.
func (s *OrderService) Get(ctx context.Context, actor Actor, id int) (*models.Order, error) {
	order, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if !canView(order, actor) {
		return nil, ErrNotOrderParty
	}
	return order, nil
}

// Detail is Get plus appointments, executions and the actions the actor can
// take next.
func (s *OrderService) Detail(ctx context.Context, actor Actor, id int) (*models.OrderDetail, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	appointments, err := s.Appointments.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	executions, err := s.Executions.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}
	if executions == nil {
		executions = []*models.Execution{}
	}
	return &models.OrderDetail{
		Order:            order,
		Appointments:     appointments,
		Executions:       executions,
		AvailableActions: s.availableActions(order, actor),
	}, nil
}

// ListExecutions returns the work records of an order the actor can see.
func (s *OrderService) ListExecutions(ctx context.Context, actor Actor, id int) ([]*models.Execution, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	executions, err := s.Executions.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if executions == nil {
		executions = []*models.Execution{}
	}
	return executions, nil
}

// AvailableActions lists the action names the actor can perform now.
func (s *OrderService) AvailableActions(ctx context.Context, actor Actor, id int) ([]string, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.availableActions(order, actor), nil
}

func (s *OrderService) availableActions(order *models.Order, actor Actor) []string {
	out := []string{}
	state, err := orderState(order)
	if err != nil || !canAct(order, actor) {
		return out
	}
	for _, a := range workflow.AvailableActions(state, actor.Role) {
		out = append(out, string(a))
	}
	return out
}

// List is scoped by role: clients see their orders, technicians their
// assignments, staff everything.
func (s *OrderService) List(ctx context.Context, actor Actor, filter models.OrderFilter) ([]*models.Order, error) {
	var scope repositories.OrderScope
	switch actor.Role {
	case workflow.RoleClient:
		scope.ClientID = &actor.ID
	case workflow.RoleTechnician:
		scope.TechnicianID = &actor.ID
	}
	if filter.Status != "" {
		status, err := workflow.ParseStatus(filter.Status)
		if err != nil {
			return nil, validation.Violations{"status": "Estado no válido"}.Err()
		}
		filter.Status = string(status)
	}
	orders, err := s.Orders.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// ApplyAction runs one workflow step. The order row is locked, the new status
// computed, side effects on appointments and executions applied, and the
// notifications, email copies and audit row written, all in one transaction.
func (s *OrderService) ApplyAction(ctx context.Context, actor Actor, id int, actionName string, req *models.OrderActionRequest) (*models.Order, error) {
	action, err := workflow.ParseAction(actionName)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &models.OrderActionRequest{}
	}

	var order *models.Order
	var created []*models.Notification
	err = s.Tx(ctx, func(st WorkflowStore) error {
		order, err = st.LockOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}
		if !canAct(order, actor) {
			return ErrNotOrderParty
		}

		state, err := orderState(order)
		if err != nil {
			return err
		}
		prevStatus := state.Status

		if err := prepareAction(ctx, st, action, req, &state); err != nil {
			return err
		}
		next, err := workflow.Transition(state, action, actor.Role)
		if err != nil {
			return err
		}

		now := timeutil.Now().UTC()
		order.Status = string(next)
		switch action {
		case workflow.ActionAssign:
			order.TechnicianID = state.TechnicianID
			order.AssignedAt = &now
			order.ImpedimentReason = nil
		case workflow.ActionReportImpediment:
			reason := strings.TrimSpace(req.Reason)
			order.ImpedimentReason = &reason
		case workflow.ActionResume:
			order.ImpedimentReason = nil
		case workflow.ActionConfirm:
			order.CompletedAt = &now
		}
		startedAt := order.UpdatedAt
		if err := st.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if err := applySideEffects(ctx, st, order, action, req, prevStatus, startedAt, now); err != nil {
			return err
		}

		created, err = emitNotices(ctx, st, order, workflow.OrderNotices(action, order.Number), actor.ID)
		if err != nil {
			return err
		}

		orderID := order.ID
		return st.CreateAudit(ctx, &models.AuditLog{
			UserID:      actor.auditUser(),
			OrderID:     &orderID,
			Action:      workflow.AuditedActions[action],
			Description: describeTransition(order.Number, prevStatus, next, req.Reason),
			IPAddress:   actor.auditIP(),
		})
	})
	if err != nil {
		metrics.WorkflowTransitions.WithLabelValues("order", string(action), string(apperrors.Classify(err))).Inc()
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("order", string(action), "ok").Inc()
	log.Printf("[Orders] %s: %s by user %d -> %s", order.Number, action, actor.ID, order.Status)
	s.Notifier.Deliver(ctx, "workflow", created)
	return order, nil
}

// prepareAction validates action inputs and fills the parts of the state the
// action itself provides.
func prepareAction(ctx context.Context, st WorkflowStore, action workflow.Action, req *models.OrderActionRequest, state *workflow.OrderState) error {
	v := validation.Violations{}
	switch action {
	case workflow.ActionAssign:
		if req.TechnicianID == nil {
			v["technician_id"] = "Debe seleccionar un técnico"
			return v.Err()
		}
		tech, err := st.GetUser(ctx, *req.TechnicianID)
		if errors.Is(err, pgx.ErrNoRows) {
			v["technician_id"] = "El técnico no existe"
			return v.Err()
		}
		if err != nil {
			return err
		}
		if tech.Role != string(workflow.RoleTechnician) || !tech.IsActive {
			v["technician_id"] = "El usuario no es un técnico activo"
			return v.Err()
		}
		techID := tech.ID
		state.TechnicianID = &techID
	case workflow.ActionReportImpediment, workflow.ActionReject:
		if validation.Required("reason", req.Reason, v) {
			validation.MaxLen("reason", req.Reason, 1000, v)
		}
	case workflow.ActionComplete:
		validation.MaxLen("work_performed", req.WorkPerformed, 4000, v)
	case workflow.ActionCancel:
		validation.MaxLen("reason", req.Reason, 1000, v)
	}
	if !v.Empty() {
		return v.Err()
	}
	return nil
}

// cancelledWorkReason is recorded on pending executions when a cancel comes
// without a reason.
const cancelledWorkReason = "Orden cancelada"

func applySideEffects(ctx context.Context, st WorkflowStore, order *models.Order, action workflow.Action,
	req *models.OrderActionRequest, prev workflow.Status, lastUpdate, now time.Time) error {
	switch action {
	case workflow.ActionStart:
		_, err := st.MoveAppointments(ctx, order.ID,
			[]workflow.AppointmentStatus{workflow.AppointmentScheduled, workflow.AppointmentConfirmed},
			workflow.AppointmentInProgress)
		return err

	case workflow.ActionComplete:
		started := now
		if prev == workflow.StatusInProgress {
			started = lastUpdate
		}
		ended := now
		exec := &models.Execution{
			OrderID:       order.ID,
			TechnicianID:  *order.TechnicianID,
			StartedAt:     started,
			EndedAt:       &ended,
			WorkPerformed: strings.TrimSpace(req.WorkPerformed),
			Confirmation:  string(workflow.ExecutionPending),
		}
		if err := st.CreateExecution(ctx, exec); err != nil {
			return fmt.Errorf("record execution: %w", err)
		}
		_, err := st.MoveAppointments(ctx, order.ID,
			[]workflow.AppointmentStatus{workflow.AppointmentConfirmed, workflow.AppointmentInProgress},
			workflow.AppointmentCompleted)
		return err

	case workflow.ActionConfirm, workflow.ActionReject:
		exec, err := st.LatestPendingExecution(ctx, order.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if action == workflow.ActionConfirm {
			return st.SetExecutionConfirmation(ctx, exec.ID, workflow.ExecutionConfirmed, nil)
		}
		reason := strings.TrimSpace(req.Reason)
		return st.SetExecutionConfirmation(ctx, exec.ID, workflow.ExecutionRejected, &reason)

	case workflow.ActionReportImpediment:
		return closePendingWork(ctx, st, order.ID, prev, req.Reason)

	case workflow.ActionCancel:
		if err := closePendingWork(ctx, st, order.ID, prev, req.Reason); err != nil {
			return err
		}
		_, err := st.MoveAppointments(ctx, order.ID,
			[]workflow.AppointmentStatus{
				workflow.AppointmentScheduled,
				workflow.AppointmentConfirmed,
				workflow.AppointmentRescheduleRequested,
				workflow.AppointmentInProgress,
			},
			workflow.AppointmentCancelled)
		return err
	}
	return nil
}

// closePendingWork rejects the executions still awaiting the client when an
// order leaves the pending-confirmation state without being confirmed.
func closePendingWork(ctx context.Context, st WorkflowStore, orderID int, prev workflow.Status, reason string) error {
	if prev != workflow.StatusPendingConfirmation {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = cancelledWorkReason
	}
	if _, err := st.RejectPendingExecutions(ctx, orderID, reason); err != nil {
		return fmt.Errorf("close pending executions: %w", err)
	}
	return nil
}

func describeTransition(number string, from, to workflow.Status, reason string) string {
	desc := fmt.Sprintf("Orden %s: %s → %s", number, from, to)
	if r := strings.TrimSpace(reason); r != "" {
		desc += ". Motivo: " + r
	}
	return desc
}
