package workflow

import "fmt"

// Audience is a class of notification recipient resolved by the service.
type Audience int

const (
	AudienceClient Audience = iota
	AudienceTechnician
	AudienceCoordinators
)

func (a Audience) String() string {
	switch a {
	case AudienceClient:
		return "client"
	case AudienceTechnician:
		return "technician"
	case AudienceCoordinators:
		return "coordinators"
	}
	return "unknown"
}

// Notice is a notification to emit for one audience.
type Notice struct {
	Audience Audience
	Type     string
	Message  string
}

type noticeTemplate struct {
	audience Audience
	kind     string
	format   string
}

var orderNotices = map[Action][]noticeTemplate{
	ActionValidate: {
		{AudienceClient, "Orden Validada", "Su orden %s fue validada y pronto se asignará un técnico."},
		{AudienceCoordinators, "Orden Validada", "La orden %s fue validada y está lista para asignación."},
	},
	ActionAssign: {
		{AudienceTechnician, "Orden Asignada", "Se le asignó la orden %s."},
		{AudienceClient, "Técnico Asignado", "Se asignó un técnico a su orden %s."},
	},
	ActionStart: {
		{AudienceClient, "Servicio Iniciado", "El técnico inició el trabajo de su orden %s."},
	},
	ActionComplete: {
		{AudienceClient, "Servicio Completado", "El técnico finalizó el trabajo de la orden %s. Por favor confirme el servicio."},
		{AudienceCoordinators, "Servicio Completado", "La orden %s está pendiente de confirmación del cliente."},
	},
	ActionConfirm: {
		{AudienceTechnician, "Servicio Confirmado", "El cliente confirmó el servicio de la orden %s."},
		{AudienceCoordinators, "Servicio Confirmado", "El cliente confirmó el servicio de la orden %s."},
	},
	ActionReject: {
		{AudienceTechnician, "Servicio Rechazado", "El cliente rechazó el servicio de la orden %s. La orden vuelve a En Proceso."},
		{AudienceCoordinators, "Servicio Rechazado", "El cliente rechazó el servicio de la orden %s."},
	},
	ActionCancel: {
		{AudienceClient, "Orden Cancelada", "Su orden %s fue cancelada."},
		{AudienceTechnician, "Orden Cancelada", "La orden %s fue cancelada."},
		{AudienceCoordinators, "Orden Cancelada", "La orden %s fue cancelada."},
	},
	ActionReportImpediment: {
		{AudienceCoordinators, "Impedimento Reportado", "El técnico reportó un impedimento en la orden %s."},
		{AudienceClient, "Impedimento Reportado", "Su orden %s tiene un impedimento reportado por el técnico."},
	},
	ActionResume: {
		{AudienceClient, "Servicio Reanudado", "Se reanudó el trabajo de su orden %s."},
		{AudienceCoordinators, "Servicio Reanudado", "Se reanudó el trabajo de la orden %s."},
	},
}

var appointmentNotices = map[AppointmentAction][]noticeTemplate{
	AppointmentActionConfirm: {
		{AudienceCoordinators, "Cita Confirmada", "El cliente confirmó la cita de la orden %s."},
		{AudienceTechnician, "Cita Confirmada", "La cita de la orden %s fue confirmada."},
	},
	AppointmentActionRequestReschedule: {
		{AudienceCoordinators, "Solicitud de Reprogramación", "El cliente solicitó reprogramar la cita de la orden %s."},
	},
	AppointmentActionApproveReschedule: {
		{AudienceClient, "Reprogramación Aprobada", "Se aprobó la nueva fecha para la cita de la orden %s. Por favor confirme la cita."},
	},
	AppointmentActionCancel: {
		{AudienceClient, "Cita Cancelada", "La cita de la orden %s fue cancelada."},
		{AudienceTechnician, "Cita Cancelada", "La cita de la orden %s fue cancelada."},
	},
}

var proposalNotices = []noticeTemplate{
	{AudienceClient, "Cita Propuesta", "Se propuso una cita para su orden %s. Por favor confírmela o solicite reprogramación."},
	{AudienceTechnician, "Cita Propuesta", "Se programó una cita para la orden %s."},
}

// OrderNotices returns the notifications an order action emits.
func OrderNotices(action Action, orderNumber string) []Notice {
	return render(orderNotices[action], orderNumber)
}

// AppointmentNotices returns the notifications an appointment action emits.
func AppointmentNotices(action AppointmentAction, orderNumber string) []Notice {
	return render(appointmentNotices[action], orderNumber)
}

// ProposalNotices returns the notifications of a new appointment proposal.
func ProposalNotices(orderNumber string) []Notice {
	return render(proposalNotices, orderNumber)
}

func render(templates []noticeTemplate, orderNumber string) []Notice {
	out := make([]Notice, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, Notice{
			Audience: tpl.audience,
			Type:     tpl.kind,
			Message:  fmt.Sprintf(tpl.format, orderNumber),
		})
	}
	return out
}
