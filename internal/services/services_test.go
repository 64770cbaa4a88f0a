package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"gestion-backend/internal/email"
	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/workflow"
)

func intPtr(i int) *int { return &i }

func TestRemainingPercent(t *testing.T) {
	tests := []struct {
		name        string
		used, limit int64
		want        int
	}{
		{"94.84 percent used", 9484, 10000, 5},
		{"empty", 0, 500, 100},
		{"half", 250, 500, 50},
		{"rounds up", 9450, 10000, 6},
		{"over limit clamps to zero", 600, 500, 0},
		{"no limit", 10, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RemainingPercent(tc.used, tc.limit); got != tc.want {
				t.Fatalf("RemainingPercent(%d, %d) = %d, want %d", tc.used, tc.limit, got, tc.want)
			}
		})
	}
	if UsedPercent(9484, 10000) != 95 || UsedPercent(20, 10) != 100 {
		t.Fatal("UsedPercent should round and clamp")
	}
}

type fakeSizer int64

func (f fakeSizer) DatabaseSize(context.Context) (int64, error) { return int64(f), nil }

func TestUsage(t *testing.T) {
	u, err := NewUsageService(fakeSizer(512*1024*1024), 1024*1024*1024).Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.RemainingPercent != 50 || u.UsedPercent != 50 {
		t.Fatalf("unexpected usage %+v", u)
	}
	if u.UsedHuman != "512.0 MB" || u.LimitHuman != "1.0 GB" {
		t.Fatalf("unexpected human sizes %q %q", u.UsedHuman, u.LimitHuman)
	}
}

func TestNewOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^OS-\d{8}-[0-9A-F]{6}$`)
	a, b := NewOrderNumber(), NewOrderNumber()
	if !pattern.MatchString(a) {
		t.Fatalf("unexpected order number %q", a)
	}
	if a == b {
		t.Fatal("order numbers should differ")
	}
}

func TestOrderVisibility(t *testing.T) {
	order := &models.Order{ClientID: 1, TechnicianID: intPtr(7)}
	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"owner client", Actor{ID: 1, Role: workflow.RoleClient}, true},
		{"other client", Actor{ID: 2, Role: workflow.RoleClient}, false},
		{"assigned technician", Actor{ID: 7, Role: workflow.RoleTechnician}, true},
		{"other technician", Actor{ID: 8, Role: workflow.RoleTechnician}, false},
		{"coordinator", Actor{ID: 3, Role: workflow.RoleCoordinator}, true},
		{"agent", Actor{ID: 4, Role: workflow.RoleAgent}, true},
		{"admin", Actor{ID: 5, Role: workflow.RoleAdmin}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := canView(order, tc.actor); got != tc.want {
				t.Fatalf("canView = %v, want %v", got, tc.want)
			}
			if got := canAct(order, tc.actor); got != tc.want {
				t.Fatalf("canAct = %v, want %v", got, tc.want)
			}
		})
	}

	unassigned := &models.Order{ClientID: 1}
	if canView(unassigned, Actor{ID: 7, Role: workflow.RoleTechnician}) {
		t.Fatal("technician must not see unassigned orders")
	}
}

func TestBuildNotifications(t *testing.T) {
	order := &models.Order{ID: 10, Number: "OS-1", ClientID: 1, TechnicianID: intPtr(7)}
	coordinators := []int{20, 21}

	list := buildNotifications(order, workflow.OrderNotices(workflow.ActionCancel, order.Number), coordinators, 0)
	got := map[int]bool{}
	for _, n := range list {
		got[n.UserID] = true
		if n.OrderID == nil || *n.OrderID != 10 {
			t.Fatalf("notification without order id: %+v", n)
		}
	}
	for _, id := range []int{1, 7, 20, 21} {
		if !got[id] {
			t.Errorf("user %d not notified of cancellation", id)
		}
	}

	// The acting coordinator does not notify themselves.
	list = buildNotifications(order, workflow.OrderNotices(workflow.ActionCancel, order.Number), coordinators, 20)
	for _, n := range list {
		if n.UserID == 20 {
			t.Fatal("actor received own notification")
		}
	}

	// No technician: technician notices are skipped.
	noTech := &models.Order{ID: 11, Number: "OS-2", ClientID: 1}
	list = buildNotifications(noTech, workflow.ProposalNotices(noTech.Number), nil, 0)
	if len(list) != 1 || list[0].UserID != 1 {
		t.Fatalf("expected only the client, got %+v", list)
	}

	// Duplicate recipients for the same type collapse.
	dup := []workflow.Notice{
		{Audience: workflow.AudienceClient, Type: "X", Message: "a"},
		{Audience: workflow.AudienceClient, Type: "X", Message: "b"},
	}
	if n := len(buildNotifications(order, dup, nil, 0)); n != 1 {
		t.Fatalf("expected 1 notification, got %d", n)
	}
}

func TestOutboxMessages(t *testing.T) {
	list := []*models.Notification{
		{ID: 1, UserID: 1, Type: "Orden Validada", Message: "Su orden OS-1 fue validada."},
		{ID: 2, UserID: 2, Type: "Orden Validada", Message: "x"},
		{ID: 3, UserID: 3, Type: "Orden Validada", Message: "y"},
	}
	contacts := map[int]repositories.Recipient{
		1: {ID: 1, Name: "Ana", Email: "ana@example.com"},
		2: {ID: 2, Name: "Sin correo"},
	}
	msgs := outboxMessages(list, contacts)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Recipient != "ana@example.com" || m.Subject != "Orden Validada" || *m.NotificationID != 1 {
		t.Fatalf("unexpected message %+v", m)
	}
	if !bytes.Contains([]byte(m.Body), []byte("Hola Ana")) {
		t.Fatalf("body should greet the user: %q", m.Body)
	}
}

func TestPageRecipients(t *testing.T) {
	all := []repositories.Recipient{{ID: 2}, {ID: 5}, {ID: 6}, {ID: 9}, {ID: 12}}

	run := func(users []repositories.Recipient, limit int) ([][]int, int) {
		calls := 0
		fetch := func(_ context.Context, afterID, limit int) ([]repositories.Recipient, error) {
			calls++
			var page []repositories.Recipient
			for _, u := range users {
				if u.ID > afterID && len(page) < limit {
					page = append(page, u)
				}
			}
			return page, nil
		}
		var pages [][]int
		err := pageRecipients(context.Background(), limit, fetch, func(page []repositories.Recipient) error {
			var ids []int
			for _, r := range page {
				ids = append(ids, r.ID)
			}
			pages = append(pages, ids)
			return nil
		})
		if err != nil {
			t.Fatalf("pageRecipients: %v", err)
		}
		return pages, calls
	}

	pages, calls := run(all, 2)
	if len(pages) != 3 || calls != 3 || pages[2][0] != 12 || pages[1][0] != 6 {
		t.Fatalf("unexpected pages %v (%d calls)", pages, calls)
	}

	pages, calls = run(all[:4], 2)
	if len(pages) != 2 || calls != 3 {
		t.Fatalf("exact multiple: pages %v, calls %d", pages, calls)
	}

	pages, calls = run(nil, 2)
	if len(pages) != 0 || calls != 1 {
		t.Fatalf("no users: pages %v, calls %d", pages, calls)
	}

	boom := errors.New("boom")
	err := pageRecipients(context.Background(), 2,
		func(context.Context, int, int) ([]repositories.Recipient, error) { return all[:2], nil },
		func([]repositories.Recipient) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestGiveUp(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
		want     bool
	}{
		{"rate limited retries", &email.StatusError{Provider: "sendgrid", Code: 429}, 1, false},
		{"server error retries", &email.StatusError{Provider: "sendgrid", Code: 502}, 2, false},
		{"max attempts reached", &email.StatusError{Provider: "sendgrid", Code: 502}, 5, true},
		{"bad request is permanent", &email.StatusError{Provider: "resend", Code: 400}, 1, true},
		{"invalid message", email.ErrInvalidMessage, 1, true},
		{"disabled", email.ErrEmailDisabled, 1, true},
		{"not implemented", email.ErrProviderNotImplemented, 1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := giveUp(tc.err, tc.attempts, 5); got != tc.want {
				t.Fatalf("giveUp = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	want := []time.Duration{30 * time.Second, time.Minute, 2 * time.Minute, 4 * time.Minute}
	for i, d := range want {
		if got := nextAttempt(i+1, now).Sub(now); got != d {
			t.Fatalf("attempt %d: delay %s, want %s", i+1, got, d)
		}
	}
	if got := nextAttempt(30, now).Sub(now); got != time.Hour {
		t.Fatalf("delay should cap at one hour, got %s", got)
	}
}

func TestBackupFileName(t *testing.T) {
	at := time.Date(2025, 1, 15, 13, 55, 7, 0, time.UTC)
	if got := BackupFileName(at); got != "backup_2025-01-15_09-55-07.json" {
		t.Fatalf("BackupFileName = %s", got)
	}
}

func TestInspectBackup(t *testing.T) {
	doc := BackupDocument{
		Version:   BackupVersion,
		CreatedAt: "2025-01-15T13:55:00.000Z",
		Tables: map[string]json.RawMessage{
			"users":    json.RawMessage(`[{"id":1},{"id":2}]`),
			"orders":   json.RawMessage(`[]`),
			"sessions": json.RawMessage(`[{"id":1}]`),
		},
	}
	data, _ := json.Marshal(doc)

	summary, err := InspectBackup(data)
	if err != nil {
		t.Fatalf("InspectBackup: %v", err)
	}
	if summary.Counts["users"] != 2 || summary.Counts["orders"] != 0 {
		t.Fatalf("unexpected counts %v", summary.Counts)
	}
	if len(summary.Ignored) != 1 || summary.Ignored[0] != "sessions" {
		t.Fatalf("unexpected ignored %v", summary.Ignored)
	}

	bad := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"wrong version", `{"version":9,"tables":{}}`},
		{"table not a list", `{"version":1,"tables":{"users":{"id":1}}}`},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := InspectBackup([]byte(tc.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRestoreDryRun(t *testing.T) {
	data := []byte(`{"version":1,"created_at":"x","tables":{"orders":[{"id":3}]}}`)
	res, err := (&BackupService{}).Restore(context.Background(), Actor{}, data, false)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.Applied || res.Summary.Counts["orders"] != 1 {
		t.Fatalf("unexpected dry run result %+v", res)
	}
}

func TestOrderReportPDF(t *testing.T) {
	tech := "Luis Pérez"
	reason := "Cliente ausente"
	ended := time.Now()
	detail := &models.OrderDetail{
		Order: &models.Order{
			Number: "OS-20250115-ABC123", ClientName: "Ana Gómez", TechnicianName: &tech,
			ServiceType: "Reparación", Description: "Aire acondicionado no enfría",
			Priority: "Alta", Address: "Av. Bolívar, Caracas", Status: "En Proceso",
			RequestedAt: time.Now(),
		},
		Appointments: []*models.Appointment{{ScheduledAt: time.Now(), Status: "Confirmada", Reason: &reason}},
		Executions: []*models.Execution{{StartedAt: time.Now(), EndedAt: &ended, WorkPerformed: "Cambio de compresor",
			Confirmation: "Rechazada", RejectionReason: &reason}},
	}
	data, err := OrderReportPDF(detail)
	if err != nil {
		t.Fatalf("OrderReportPDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestDescribeTransition(t *testing.T) {
	got := describeTransition("OS-1", workflow.StatusAssigned, workflow.StatusImpeded, " sin acceso ")
	if got != "Orden OS-1: Asignada → Con_Impedimento. Motivo: sin acceso" {
		t.Fatalf("unexpected description %q", got)
	}
}
