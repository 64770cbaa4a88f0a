package workflow

import (
	"errors"
	"testing"
)

func tech(id int) *int { return &id }

func TestTransition_HappyPath(t *testing.T) {
	tests := []struct {
		name   string
		state  OrderState
		action Action
		role   Role
		want   Status
	}{
		{"agent validates", OrderState{Status: StatusCreated}, ActionValidate, RoleAgent, StatusValidated},
		{"coordinator assigns", OrderState{Status: StatusValidated, TechnicianID: tech(7)}, ActionAssign, RoleCoordinator, StatusAssigned},
		{"coordinator reassigns", OrderState{Status: StatusAssigned, TechnicianID: tech(8)}, ActionAssign, RoleCoordinator, StatusAssigned},
		{"technician starts", OrderState{Status: StatusAssigned, TechnicianID: tech(7)}, ActionStart, RoleTechnician, StatusInProgress},
		{"technician completes in progress", OrderState{Status: StatusInProgress, TechnicianID: tech(7)}, ActionComplete, RoleTechnician, StatusPendingConfirmation},
		{"client confirms", OrderState{Status: StatusPendingConfirmation, TechnicianID: tech(7)}, ActionConfirm, RoleClient, StatusCompleted},
		{"agent cancels created", OrderState{Status: StatusCreated}, ActionCancel, RoleAgent, StatusCancelled},
		{"technician reports impediment", OrderState{Status: StatusInProgress, TechnicianID: tech(7)}, ActionReportImpediment, RoleTechnician, StatusImpeded},
		{"coordinator resumes", OrderState{Status: StatusImpeded, TechnicianID: tech(7)}, ActionResume, RoleCoordinator, StatusInProgress},
		{"admin validates", OrderState{Status: StatusCreated}, ActionValidate, RoleAdmin, StatusValidated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.state, tc.action, tc.role)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// Completing straight from Asignada and then rejecting must land on
// En Proceso, not back on Asignada.
func TestTransition_CompleteThenReject(t *testing.T) {
	order := OrderState{Status: StatusAssigned, TechnicianID: tech(3)}

	next, err := Transition(order, ActionComplete, RoleTechnician)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if next != StatusPendingConfirmation {
		t.Fatalf("complete: got %q", next)
	}

	order.Status = next
	next, err = Transition(order, ActionReject, RoleClient)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if next != StatusInProgress {
		t.Fatalf("reject: got %q, want %q", next, StatusInProgress)
	}
}

func TestTransition_Errors(t *testing.T) {
	tests := []struct {
		name    string
		state   OrderState
		action  Action
		role    Role
		wantErr error
	}{
		{"client cannot validate", OrderState{Status: StatusCreated}, ActionValidate, RoleClient, ErrForbiddenRole},
		{"client cannot complete", OrderState{Status: StatusInProgress, TechnicianID: tech(1)}, ActionComplete, RoleClient, ErrForbiddenRole},
		{"technician cannot cancel", OrderState{Status: StatusAssigned, TechnicianID: tech(1)}, ActionCancel, RoleTechnician, ErrForbiddenRole},
		{"assign without technician", OrderState{Status: StatusValidated}, ActionAssign, RoleCoordinator, ErrTechnicianRequired},
		{"assign before validation", OrderState{Status: StatusCreated, TechnicianID: tech(1)}, ActionAssign, RoleCoordinator, ErrInvalidTransition},
		{"start unassigned", OrderState{Status: StatusValidated}, ActionStart, RoleTechnician, ErrInvalidTransition},
		{"confirm before completion", OrderState{Status: StatusInProgress, TechnicianID: tech(1)}, ActionConfirm, RoleClient, ErrInvalidTransition},
		{"cancel completed", OrderState{Status: StatusCompleted, TechnicianID: tech(1)}, ActionCancel, RoleAgent, ErrInvalidTransition},
		{"cancel cancelled", OrderState{Status: StatusCancelled}, ActionCancel, RoleAdmin, ErrInvalidTransition},
		{"impediment on completed", OrderState{Status: StatusCompleted, TechnicianID: tech(1)}, ActionReportImpediment, RoleTechnician, ErrInvalidTransition},
		{"impediment without technician", OrderState{Status: StatusAssigned}, ActionReportImpediment, RoleAdmin, ErrTechnicianRequired},
		{"unknown action", OrderState{Status: StatusCreated}, Action("archive"), RoleAdmin, ErrUnknownAction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Transition(tc.state, tc.action, tc.role)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		for _, action := range Actions {
			for _, role := range Roles {
				if _, err := Transition(OrderState{Status: status, TechnicianID: tech(1)}, action, role); err == nil {
					t.Errorf("%s by %s moved terminal status %q", action, role, status)
				}
			}
		}
	}
}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		name  string
		state OrderState
		role  Role
		want  []Action
	}{
		{"agent on created", OrderState{Status: StatusCreated}, RoleAgent, []Action{ActionValidate, ActionCancel}},
		{"coordinator on validated", OrderState{Status: StatusValidated}, RoleCoordinator, []Action{ActionAssign}},
		{"technician on assigned", OrderState{Status: StatusAssigned, TechnicianID: tech(2)}, RoleTechnician, []Action{ActionStart, ActionComplete, ActionReportImpediment}},
		{"client on pending", OrderState{Status: StatusPendingConfirmation, TechnicianID: tech(2)}, RoleClient, []Action{ActionConfirm, ActionReject}},
		{"client on in progress", OrderState{Status: StatusInProgress, TechnicianID: tech(2)}, RoleClient, nil},
		{"agent on completed", OrderState{Status: StatusCompleted, TechnicianID: tech(2)}, RoleAgent, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AvailableActions(tc.state, tc.role)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		got, err := ParseStatus(" " + string(s) + " ")
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	if got, err := ParseStatus("En_Proceso"); err != nil || got != StatusInProgress {
		t.Errorf("En_Proceso: got %q, %v", got, err)
	}
	if _, err := ParseStatus("Archivada"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"Cliente":     RoleClient,
		"agente":      RoleAgent,
		"COORDINADOR": RoleCoordinator,
		"Técnico":     RoleTechnician,
		"Tecnico":     RoleTechnician,
		"Admin":       RoleAdmin,
	}
	for in, want := range tests {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestEveryActionIsAudited(t *testing.T) {
	for _, a := range Actions {
		if AuditedActions[a] == "" {
			t.Errorf("action %s has no audit code", a)
		}
	}
}

func TestOrderNotices(t *testing.T) {
	notices := OrderNotices(ActionComplete, "OS-20250115-ABC123")
	if len(notices) == 0 {
		t.Fatal("complete must notify")
	}
	if notices[0].Audience != AudienceClient {
		t.Fatalf("first notice should target the client, got %s", notices[0].Audience)
	}
	for _, n := range notices {
		if n.Type == "" || n.Message == "" {
			t.Fatalf("incomplete notice %+v", n)
		}
	}
	for _, a := range Actions {
		if len(OrderNotices(a, "X")) == 0 {
			t.Errorf("action %s emits no notification", a)
		}
	}
}
