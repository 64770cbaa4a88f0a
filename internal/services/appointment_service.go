package services

import (
	"context"
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
)

// AppointmentService reads appointments through the repositories and runs
// every change through Tx with the order row locked.
type AppointmentService struct {
	Orders       *repositories.OrderRepository
	Appointments *repositories.AppointmentRepository
	Notifier     *NotificationService
	Tx           WorkflowTx
}

func NewAppointmentService(db repositories.TxBeginner, orders *repositories.OrderRepository,
	appointments *repositories.AppointmentRepository, notifier *NotificationService) *AppointmentService {
	return &AppointmentService{
		Orders:       orders,
		Appointments: appointments,
		Notifier:     notifier,
		Tx:           PostgresWorkflow(db),
	}
}

// parseSchedule turns the local Caracas date and time of a form into UTC and
// rejects dates in the past.
func parseSchedule(req *models.ScheduleRequest, v validation.Violations) time.Time {
	dateOK := validation.Required("date", req.Date, v)
	timeOK := validation.Required("time", req.Time, v)
	if !dateOK || !timeOK {
		return time.Time{}
	}
	t, err := timeutil.LocalToUTC(strings.TrimSpace(req.Date), strings.TrimSpace(req.Time))
	if err != nil {
		v["date"] = "Fecha u hora no válida"
		return time.Time{}
	}
	if !t.After(timeutil.Now()) {
		v["date"] = "La fecha debe ser futura"
		return time.Time{}
	}
	return t
}

// ListByOrder returns the appointments of an order the actor can see.
func (s *AppointmentService) ListByOrder(ctx context.Context, actor Actor, orderID int) ([]*models.Appointment, error) {
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if !canView(order, actor) {
		return nil, ErrNotOrderParty
	}
	list, err := s.Appointments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Appointment{}
	}
	return list, nil
}

// Propose schedules a new visit for an assigned order. The client is asked to
// confirm it.
func (s *AppointmentService) Propose(ctx context.Context, actor Actor, orderID int, req *models.ScheduleRequest) (*models.Appointment, error) {
	if !actor.is(workflow.RoleCoordinator, workflow.RoleAdmin) {
		return nil, fmt.Errorf("%w: %s cannot propose appointments", workflow.ErrForbiddenRole, actor.Role)
	}
	v := validation.Violations{}
	at := parseSchedule(req, v)
	if !v.Empty() {
		return nil, v.Err()
	}

	appt := &models.Appointment{
		OrderID:     orderID,
		ScheduledAt: at,
		Status:      string(workflow.AppointmentScheduled),
		CreatedBy:   actor.auditUser(),
	}
	var created []*models.Notification
	err := s.Tx(ctx, func(st WorkflowStore) error {
		order, err := st.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order %d: %w", orderID, err)
		}
		state, err := orderState(order)
		if err != nil {
			return err
		}
		if !workflow.CanProposeAppointment(state.Status) {
			return fmt.Errorf("%w: order %s is %q", workflow.ErrInvalidTransition, order.Number, order.Status)
		}
		live, err := st.HasLiveAppointment(ctx, orderID)
		if err != nil {
			return err
		}
		if live {
			return fmt.Errorf("%w: order %s already has a pending appointment", workflow.ErrInvalidTransition, order.Number)
		}
		if err := st.CreateAppointment(ctx, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		created, err = emitNotices(ctx, st, order, workflow.ProposalNotices(order.Number), actor.ID)
		if err != nil {
			return err
		}
		id := order.ID
		return st.CreateAudit(ctx, &models.AuditLog{
			UserID:      actor.auditUser(),
			OrderID:     &id,
			Action:      workflow.AuditAppointmentProposed,
			Description: fmt.Sprintf("Cita propuesta para la orden %s el %s", order.Number, timeutil.FormatDate(appt.ScheduledAt)),
			IPAddress:   actor.auditIP(),
		})
	})
	if err != nil {
		metrics.WorkflowTransitions.WithLabelValues("appointment", "propose", string(apperrors.Classify(err))).Inc()
		return nil, err
	}
	metrics.WorkflowTransitions.WithLabelValues("appointment", "propose", "ok").Inc()
	s.Notifier.Deliver(ctx, "workflow", created)
	return appt, nil
}

// Act applies confirm, reschedule, approve-reschedule or cancel to an
// appointment. Start and complete follow the order and are not accepted here.
func (s *AppointmentService) Act(ctx context.Context, actor Actor, id int, actionName string, req *models.ScheduleRequest) (*models.Appointment, error) {
	action, err := workflow.ParseAppointmentAction(actionName)
	if err != nil {
		return nil, err
	}
	if _, ok := workflow.AuditedAppointmentActions[action]; !ok {
		return nil, fmt.Errorf("%w: %s is driven by the order", workflow.ErrUnknownAction, action)
	}
	if req == nil {
		req = &models.ScheduleRequest{}
	}

	var requested time.Time
	if action == workflow.AppointmentActionRequestReschedule {
		v := validation.Violations{}
		requested = parseSchedule(req, v)
		if validation.Required("reason", req.Reason, v) {
			validation.MaxLen("reason", req.Reason, 1000, v)
		}
		if !v.Empty() {
			return nil, v.Err()
		}
	}

	var appt *models.Appointment
	var created []*models.Notification
	err = s.Tx(ctx, func(st WorkflowStore) error {
		// Lock the order before the appointment, like order actions do.
		current, err := st.GetAppointment(ctx, id)
		if err != nil {
			return fmt.Errorf("get appointment %d: %w", id, err)
		}
		order, err := st.LockOrder(ctx, current.OrderID)
		if err != nil {
			return fmt.Errorf("lock order %d: %w", current.OrderID, err)
		}
		if !canAct(order, actor) {
			return ErrNotOrderParty
		}
		appt, err = st.LockAppointment(ctx, id)
		if err != nil {
			return fmt.Errorf("lock appointment %d: %w", id, err)
		}

		next, err := workflow.TransitionAppointment(appt.Status, action, actor.Role)
		if err != nil {
			return err
		}
		prev := appt.Status
		appt.Status = string(next)

		switch action {
		case workflow.AppointmentActionRequestReschedule:
			at := requested
			reason := strings.TrimSpace(req.Reason)
			appt.RequestedAt = &at
			appt.Reason = &reason
		case workflow.AppointmentActionApproveReschedule:
			if appt.RequestedAt == nil {
				return fmt.Errorf("%w: reschedule request without a date", workflow.ErrInvalidTransition)
			}
			if !appt.RequestedAt.After(timeutil.Now()) {
				return validation.Violations{"date": "La fecha solicitada ya pasó"}.Err()
			}
			appt.ScheduledAt = *appt.RequestedAt
			appt.RequestedAt = nil
		}
		if err := st.UpdateAppointment(ctx, appt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		created, err = emitNotices(ctx, st, order, workflow.AppointmentNotices(action, order.Number), actor.ID)
		if err != nil {
			return err
		}
		orderID := order.ID
		return st.CreateAudit(ctx, &models.AuditLog{
			UserID:      actor.auditUser(),
			OrderID:     &orderID,
			Action:      workflow.AuditedAppointmentActions[action],
			Description: fmt.Sprintf("Cita %d de la orden %s: %s → %s", appt.ID, order.Number, prev, appt.Status),
			IPAddress:   actor.auditIP(),
		})
	})
	if err != nil {
		metrics.WorkflowTransitions.WithLabelValues("appointment", string(action), string(apperrors.Classify(err))).Inc()
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("appointment", string(action), "ok").Inc()
	log.Printf("[Appointments] %d: %s by user %d -> %s", appt.ID, action, actor.ID, appt.Status)
	s.Notifier.Deliver(ctx, "workflow", created)
	return appt, nil
}
