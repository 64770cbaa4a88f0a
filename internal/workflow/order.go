package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the stored label of an order status.
type Status string

const (
	StatusCreated             Status = "Creada"
	StatusValidated           Status = "Validada"
	StatusAssigned            Status = "Asignada"
	StatusInProgress          Status = "En Proceso"
	StatusPendingConfirmation Status = "Completada (pendiente de confirmación)"
	StatusCompleted           Status = "Completada"
	StatusCancelled           Status = "Cancelada"
	StatusImpeded             Status = "Con_Impedimento"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []Status{
	StatusCreated,
	StatusValidated,
	StatusAssigned,
	StatusInProgress,
	StatusPendingConfirmation,
	StatusCompleted,
	StatusCancelled,
	StatusImpeded,
}

// Role is the role tag stored on a user.
type Role string

const (
	RoleClient      Role = "Cliente"
	RoleAgent       Role = "Agente"
	RoleCoordinator Role = "Coordinador"
	RoleTechnician  Role = "Tecnico"
	RoleAdmin       Role = "Admin"
)

var Roles = []Role{RoleClient, RoleAgent, RoleCoordinator, RoleTechnician, RoleAdmin}

// ParseRole accepts the stored tag case-insensitively, including the
// accented "Técnico" spelling.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cliente":
		return RoleClient, nil
	case "agente":
		return RoleAgent, nil
	case "coordinador":
		return RoleCoordinator, nil
	case "tecnico", "técnico":
		return RoleTechnician, nil
	case "admin", "administrador":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role: %s", s)
}

// Action is an order operation requested by a user.
type Action string

const (
	ActionValidate         Action = "validate"
	ActionAssign           Action = "assign"
	ActionStart            Action = "start"
	ActionComplete         Action = "complete"
	ActionConfirm          Action = "confirm"
	ActionReject           Action = "reject"
	ActionCancel           Action = "cancel"
	ActionReportImpediment Action = "report_impediment"
	ActionResume           Action = "resume"
)

// Actions is the display order of order actions.
var Actions = []Action{
	ActionValidate,
	ActionAssign,
	ActionStart,
	ActionComplete,
	ActionConfirm,
	ActionReject,
	ActionReportImpediment,
	ActionResume,
	ActionCancel,
}

var (
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrUnknownAction      = errors.New("unknown action")
	ErrForbiddenRole      = errors.New("role not allowed to perform action")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTechnicianRequired = errors.New("technician assignment required")
)

// OrderState is the part of an order the transition rules look at.
// TechnicianID holds the technician the order will carry after the action,
// so an assign request sets it to the chosen technician.
type OrderState struct {
	Status       Status
	TechnicianID *int
}

type transitionRule struct {
	roles []Role
	from  []Status
	to    Status
}

var nonTerminal = []Status{
	StatusCreated,
	StatusValidated,
	StatusAssigned,
	StatusInProgress,
	StatusPendingConfirmation,
	StatusImpeded,
}

var transitionRules = map[Action]transitionRule{
	ActionValidate: {
		roles: []Role{RoleAgent, RoleAdmin},
		from:  []Status{StatusCreated},
		to:    StatusValidated,
	},
	ActionAssign: {
		roles: []Role{RoleCoordinator, RoleAdmin},
		from:  []Status{StatusValidated, StatusAssigned, StatusImpeded},
		to:    StatusAssigned,
	},
	ActionStart: {
		roles: []Role{RoleTechnician, RoleAdmin},
		from:  []Status{StatusAssigned},
		to:    StatusInProgress,
	},
	ActionComplete: {
		roles: []Role{RoleTechnician, RoleAdmin},
		from:  []Status{StatusAssigned, StatusInProgress},
		to:    StatusPendingConfirmation,
	},
	ActionConfirm: {
		roles: []Role{RoleClient, RoleAdmin},
		from:  []Status{StatusPendingConfirmation},
		to:    StatusCompleted,
	},
	// Rejection reopens the work, it never goes back to Asignada.
	ActionReject: {
		roles: []Role{RoleClient, RoleAdmin},
		from:  []Status{StatusPendingConfirmation},
		to:    StatusInProgress,
	},
	ActionCancel: {
		roles: []Role{RoleAgent, RoleAdmin},
		from:  nonTerminal,
		to:    StatusCancelled,
	},
	ActionReportImpediment: {
		roles: []Role{RoleTechnician, RoleAdmin},
		from:  []Status{StatusAssigned, StatusInProgress, StatusPendingConfirmation},
		to:    StatusImpeded,
	},
	ActionResume: {
		roles: []Role{RoleTechnician, RoleCoordinator, RoleAdmin},
		from:  []Status{StatusImpeded},
		to:    StatusInProgress,
	},
}

// statuses that can only be held by an order with a technician
var requiresTechnician = map[Status]bool{
	StatusAssigned:            true,
	StatusInProgress:          true,
	StatusPendingConfirmation: true,
	StatusCompleted:           true,
	StatusImpeded:             true,
}

// ParseStatus maps a stored label to its Status, tolerating surrounding
// whitespace and the "En_Proceso" spelling.
func ParseStatus(s string) (Status, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "En_Proceso" {
		return StatusInProgress, nil
	}
	for _, st := range OrderStatuses {
		if string(st) == trimmed {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownStatus, s)
}

// ParseAction validates an action name taken from a request path.
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if _, ok := transitionRules[a]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, s)
	}
	return a, nil
}

// IsTerminal reports whether no further action can move the order.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RequiresTechnician reports whether an order in status s must have a
// technician assigned.
func RequiresTechnician(s Status) bool {
	return requiresTechnician[s]
}

// Transition computes the status an order moves to when role performs action.
// It never mutates anything; callers persist the returned status.
func Transition(order OrderState, action Action, role Role) (Status, error) {
	return transition(order, action, role, true)
}

func transition(order OrderState, action Action, role Role, checkTechnician bool) (Status, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if !containsRole(rule.roles, role) {
		return "", fmt.Errorf("%w: %s cannot %s", ErrForbiddenRole, role, action)
	}
	if !containsStatus(rule.from, order.Status) {
		return "", fmt.Errorf("%w: cannot %s an order in status %q", ErrInvalidTransition, action, order.Status)
	}
	if checkTechnician && RequiresTechnician(rule.to) && order.TechnicianID == nil {
		return "", fmt.Errorf("%w: %s to %q", ErrTechnicianRequired, action, rule.to)
	}
	return rule.to, nil
}

// AvailableActions lists the actions role may currently perform on the order.
// Assign is offered without a technician since the technician is chosen as
// part of the action.
func AvailableActions(order OrderState, role Role) []Action {
	var out []Action
	for _, action := range Actions {
		check := action != ActionAssign
		if _, err := transition(order, action, role, check); err == nil {
			out = append(out, action)
		}
	}
	return out
}

func containsRole(roles []Role, r Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

func containsStatus(statuses []Status, s Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
