package workflow

import "strings"

// Badge is the label, icon and color variant a dashboard shows for a status.
type Badge struct {
	Status  string `json:"status"`
	Label   string `json:"label"`
	Icon    string `json:"icon"`
	Variant string `json:"variant"`
}

var badges = map[string]Badge{
	string(StatusCreated):             {Label: "Creada", Icon: "file-plus", Variant: "secondary"},
	string(StatusValidated):           {Label: "Validada", Icon: "check-square", Variant: "info"},
	string(StatusAssigned):            {Label: "Asignada", Icon: "user-check", Variant: "primary"},
	string(StatusInProgress):          {Label: "En Proceso", Icon: "loader", Variant: "warning"},
	string(StatusPendingConfirmation): {Label: "Pendiente de confirmación", Icon: "clock", Variant: "warning"},
	string(StatusCompleted):           {Label: "Completada", Icon: "check-circle", Variant: "success"},
	string(StatusCancelled):           {Label: "Cancelada", Icon: "x-circle", Variant: "danger"},
	string(StatusImpeded):             {Label: "Con impedimento", Icon: "alert-triangle", Variant: "danger"},

	string(AppointmentScheduled):           {Label: "Programada", Icon: "calendar", Variant: "info"},
	string(AppointmentConfirmed):           {Label: "Confirmada", Icon: "calendar-check", Variant: "success"},
	string(AppointmentRescheduleRequested): {Label: "Solicitud de Reprogramación", Icon: "calendar-clock", Variant: "warning"},

	string(ExecutionPending):  {Label: "Pendiente", Icon: "hourglass", Variant: "secondary"},
	string(ExecutionRejected): {Label: "Rechazada", Icon: "thumbs-down", Variant: "danger"},
}

var defaultBadge = Badge{Label: "Desconocido", Icon: "help-circle", Variant: "secondary"}

// BadgeFor returns the badge of any order, appointment or execution status.
// Legacy appointment spellings resolve to their canonical badge and unknown
// values get the default badge.
func BadgeFor(status string) Badge {
	key := strings.TrimSpace(status)
	if b, ok := badges[key]; ok {
		b.Status = key
		return b
	}
	if st, err := ParseStatus(key); err == nil {
		b := badges[string(st)]
		b.Status = string(st)
		return b
	}
	if st, err := NormalizeAppointmentStatus(key); err == nil {
		b := badges[string(st)]
		b.Status = string(st)
		return b
	}
	b := defaultBadge
	b.Status = key
	if key != "" {
		b.Label = key
	}
	return b
}

// Badges lists the badge of every known status.
func Badges() []Badge {
	seen := make(map[string]bool)
	var out []Badge
	add := func(s string) {
		if seen[s] {
			return
		}
		seen[s] = true
		out = append(out, BadgeFor(s))
	}
	for _, s := range OrderStatuses {
		add(string(s))
	}
	for _, s := range AppointmentStatuses {
		add(string(s))
	}
	for _, s := range []ExecutionConfirmation{ExecutionPending, ExecutionConfirmed, ExecutionRejected} {
		add(string(s))
	}
	return out
}
