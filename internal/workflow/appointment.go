package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// AppointmentStatus is the canonical stored label of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled           AppointmentStatus = "Programada"
	AppointmentConfirmed           AppointmentStatus = "Confirmada"
	AppointmentRescheduleRequested AppointmentStatus = "Solicitud de Reprogramación"
	AppointmentCancelled           AppointmentStatus = "Cancelada"
	AppointmentCompleted           AppointmentStatus = "Completada"
	AppointmentInProgress          AppointmentStatus = "En Proceso"
)

var AppointmentStatuses = []AppointmentStatus{
	AppointmentScheduled,
	AppointmentConfirmed,
	AppointmentRescheduleRequested,
	AppointmentInProgress,
	AppointmentCompleted,
	AppointmentCancelled,
}

// appointmentAliases maps every historical spelling, lower-cased, to the
// canonical status. Migration 002 rewrites stored rows with the same table.
var appointmentAliases = map[string]AppointmentStatus{
	"programada":                  AppointmentScheduled,
	"propuesta":                   AppointmentScheduled,
	"confirmada":                  AppointmentConfirmed,
	"solicitud de reprogramación": AppointmentRescheduleRequested,
	"solicitud de reprogramacion": AppointmentRescheduleRequested,
	"solic reprogram":             AppointmentRescheduleRequested,
	"reprogramada":                AppointmentRescheduleRequested,
	"cancelada":                   AppointmentCancelled,
	"completada":                  AppointmentCompleted,
	"en proceso":                  AppointmentInProgress,
	"en_proceso":                  AppointmentInProgress,
}

var ErrUnknownAppointmentStatus = errors.New("unknown appointment status")

// NormalizeAppointmentStatus maps a stored or legacy label to its canonical
// status.
func NormalizeAppointmentStatus(s string) (AppointmentStatus, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if st, ok := appointmentAliases[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAppointmentStatus, s)
}

// IsRescheduleRequested is the single predicate deciding whether an
// appointment awaits reprogramming approval.
func IsRescheduleRequested(s string) bool {
	st, err := NormalizeAppointmentStatus(s)
	return err == nil && st == AppointmentRescheduleRequested
}

// IsAppointmentTerminal reports whether the appointment is closed.
func IsAppointmentTerminal(s AppointmentStatus) bool {
	return s == AppointmentCancelled || s == AppointmentCompleted
}

// LiveAppointmentStatuses are the states of a visit that is still pending.
// An order holds at most one appointment in them at a time.
var LiveAppointmentStatuses = []AppointmentStatus{
	AppointmentScheduled,
	AppointmentConfirmed,
	AppointmentRescheduleRequested,
}

type AppointmentAction string

const (
	AppointmentActionConfirm           AppointmentAction = "confirm"
	AppointmentActionRequestReschedule AppointmentAction = "reschedule"
	AppointmentActionApproveReschedule AppointmentAction = "approve-reschedule"
	AppointmentActionCancel            AppointmentAction = "cancel"
	AppointmentActionStart             AppointmentAction = "start"
	AppointmentActionComplete          AppointmentAction = "complete"
)

var appointmentActionOrder = []AppointmentAction{
	AppointmentActionConfirm,
	AppointmentActionRequestReschedule,
	AppointmentActionApproveReschedule,
	AppointmentActionStart,
	AppointmentActionComplete,
	AppointmentActionCancel,
}

type appointmentRule struct {
	roles []Role
	from  []AppointmentStatus
	to    AppointmentStatus
}

var appointmentRules = map[AppointmentAction]appointmentRule{
	AppointmentActionConfirm: {
		roles: []Role{RoleClient, RoleAdmin},
		from:  []AppointmentStatus{AppointmentScheduled},
		to:    AppointmentConfirmed,
	},
	AppointmentActionRequestReschedule: {
		roles: []Role{RoleClient, RoleAdmin},
		from:  []AppointmentStatus{AppointmentScheduled, AppointmentConfirmed},
		to:    AppointmentRescheduleRequested,
	},
	// Approval re-proposes the requested date; the client still has to confirm.
	AppointmentActionApproveReschedule: {
		roles: []Role{RoleCoordinator, RoleAdmin},
		from:  []AppointmentStatus{AppointmentRescheduleRequested},
		to:    AppointmentScheduled,
	},
	AppointmentActionCancel: {
		roles: []Role{RoleCoordinator, RoleAgent, RoleAdmin},
		from:  []AppointmentStatus{AppointmentScheduled, AppointmentConfirmed, AppointmentRescheduleRequested},
		to:    AppointmentCancelled,
	},
	AppointmentActionStart: {
		roles: []Role{RoleTechnician, RoleAdmin},
		from:  []AppointmentStatus{AppointmentScheduled, AppointmentConfirmed},
		to:    AppointmentInProgress,
	},
	AppointmentActionComplete: {
		roles: []Role{RoleTechnician, RoleAdmin},
		from:  []AppointmentStatus{AppointmentConfirmed, AppointmentInProgress},
		to:    AppointmentCompleted,
	},
}

// ParseAppointmentAction validates an action name taken from a request path.
func ParseAppointmentAction(s string) (AppointmentAction, error) {
	a := AppointmentAction(strings.TrimSpace(s))
	if _, ok := appointmentRules[a]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, s)
	}
	return a, nil
}

// TransitionAppointment computes the next canonical status of an appointment
// whose stored status is current.
func TransitionAppointment(current string, action AppointmentAction, role Role) (AppointmentStatus, error) {
	rule, ok := appointmentRules[action]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	from, err := NormalizeAppointmentStatus(current)
	if err != nil {
		return "", err
	}
	if !containsRole(rule.roles, role) {
		return "", fmt.Errorf("%w: %s cannot %s an appointment", ErrForbiddenRole, role, action)
	}
	for _, s := range rule.from {
		if s == from {
			return rule.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s an appointment in status %q", ErrInvalidTransition, action, from)
}

// AvailableAppointmentActions lists what role may do with an appointment in
// the given stored status.
func AvailableAppointmentActions(current string, role Role) []AppointmentAction {
	var out []AppointmentAction
	for _, action := range appointmentActionOrder {
		if _, err := TransitionAppointment(current, action, role); err == nil {
			out = append(out, action)
		}
	}
	return out
}

// CanProposeAppointment reports whether an order in status s accepts a new
// appointment proposal.
func CanProposeAppointment(s Status) bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusImpeded:
		return true
	}
	return false
}

// ExecutionConfirmation is the client verdict on a technician's work.
type ExecutionConfirmation string

const (
	ExecutionPending   ExecutionConfirmation = "Pendiente"
	ExecutionConfirmed ExecutionConfirmation = "Confirmada"
	ExecutionRejected  ExecutionConfirmation = "Rechazada"
)
