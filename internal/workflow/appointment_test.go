package workflow

import (
	"errors"
	"testing"
)

func TestIsRescheduleRequested_Variants(t *testing.T) {
	for _, s := range []string{
		"Reprogramada",
		"Solic Reprogram",
		"Solicitud de Reprogramación",
		"solicitud de reprogramacion",
		"  Solicitud  de Reprogramación ",
	} {
		if !IsRescheduleRequested(s) {
			t.Errorf("%q should count as a reschedule request", s)
		}
		actions := AvailableAppointmentActions(s, RoleCoordinator)
		if !containsAppointmentAction(actions, AppointmentActionApproveReschedule) {
			t.Errorf("%q should offer approve-reschedule to coordinators, got %v", s, actions)
		}
	}
	for _, s := range []string{"Programada", "Confirmada", "Cancelada", "", "Reprogramar"} {
		if IsRescheduleRequested(s) {
			t.Errorf("%q must not count as a reschedule request", s)
		}
	}
}

func TestNormalizeAppointmentStatus(t *testing.T) {
	tests := map[string]AppointmentStatus{
		"Propuesta":    AppointmentScheduled,
		"Programada":   AppointmentScheduled,
		"confirmada":   AppointmentConfirmed,
		"Cancelada":    AppointmentCancelled,
		"Completada":   AppointmentCompleted,
		"En_Proceso":   AppointmentInProgress,
		"Reprogramada": AppointmentRescheduleRequested,
	}
	for in, want := range tests {
		got, err := NormalizeAppointmentStatus(in)
		if err != nil || got != want {
			t.Errorf("NormalizeAppointmentStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := NormalizeAppointmentStatus("Pospuesta"); !errors.Is(err, ErrUnknownAppointmentStatus) {
		t.Errorf("expected ErrUnknownAppointmentStatus, got %v", err)
	}
}

func TestTransitionAppointment(t *testing.T) {
	tests := []struct {
		name    string
		current string
		action  AppointmentAction
		role    Role
		want    AppointmentStatus
		wantErr error
	}{
		{"client confirms proposal", "Propuesta", AppointmentActionConfirm, RoleClient, AppointmentConfirmed, nil},
		{"client requests reschedule", "Confirmada", AppointmentActionRequestReschedule, RoleClient, AppointmentRescheduleRequested, nil},
		{"coordinator approves legacy", "Solic Reprogram", AppointmentActionApproveReschedule, RoleCoordinator, AppointmentScheduled, nil},
		{"agent cancels", "Programada", AppointmentActionCancel, RoleAgent, AppointmentCancelled, nil},
		{"technician starts confirmed", "Confirmada", AppointmentActionStart, RoleTechnician, AppointmentInProgress, nil},
		{"technician completes", "En Proceso", AppointmentActionComplete, RoleTechnician, AppointmentCompleted, nil},
		{"client cannot approve", "Reprogramada", AppointmentActionApproveReschedule, RoleClient, "", ErrForbiddenRole},
		{"approve without request", "Programada", AppointmentActionApproveReschedule, RoleCoordinator, "", ErrInvalidTransition},
		{"confirm cancelled", "Cancelada", AppointmentActionConfirm, RoleClient, "", ErrInvalidTransition},
		{"unknown stored status", "Pospuesta", AppointmentActionConfirm, RoleClient, "", ErrUnknownAppointmentStatus},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TransitionAppointment(tc.current, tc.action, tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCanProposeAppointment(t *testing.T) {
	allowed := map[Status]bool{StatusAssigned: true, StatusInProgress: true, StatusImpeded: true}
	for _, s := range OrderStatuses {
		if got := CanProposeAppointment(s); got != allowed[s] {
			t.Errorf("CanProposeAppointment(%q) = %v", s, got)
		}
	}
}

func containsAppointmentAction(actions []AppointmentAction, a AppointmentAction) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}
