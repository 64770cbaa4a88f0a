package workflow

// Audit action codes written to audit_logs.
const (
	AuditOrderCreated        = "ORDEN_CREADA"
	AuditOrderValidated      = "ORDEN_VALIDADA"
	AuditOrderAssigned       = "ORDEN_ASIGNADA"
	AuditServiceStarted      = "SERVICIO_INICIADO"
	AuditServiceCompleted    = "SERVICIO_COMPLETADO"
	AuditServiceConfirmed    = "SERVICIO_CONFIRMADO"
	AuditServiceRejected     = "SERVICIO_RECHAZADO"
	AuditOrderCancelled      = "ORDEN_CANCELADA"
	AuditImpedimentReported  = "IMPEDIMENTO_REPORTADO"
	AuditServiceResumed      = "SERVICIO_REANUDADO"
	AuditAppointmentProposed = "CITA_PROPUESTA"
	AuditAppointmentConfirm  = "CITA_CONFIRMADA"
	AuditRescheduleRequested = "REPROGRAMACION_SOLICITADA"
	AuditRescheduleApproved  = "REPROGRAMACION_APROBADA"
	AuditAppointmentCancel   = "CITA_CANCELADA"
	AuditUserCreated         = "USUARIO_CREADO"
	AuditUserUpdated         = "USUARIO_ACTUALIZADO"
	AuditUserBlocked         = "USUARIO_BLOQUEADO"
	AuditUserUnblocked       = "USUARIO_DESBLOQUEADO"
	AuditUserLockedOut       = "USUARIO_BLOQUEADO_POR_INTENTOS"
	AuditPasswordChanged     = "PASSWORD_CAMBIADO"
	AuditBroadcast           = "NOTIFICACION_MASIVA"
	AuditBackupExport        = "BACKUP_EXPORT"
	AuditBackupRestore       = "BACKUP_RESTORE"
	AuditTOTPEnabled         = "2FA_ACTIVADO"
	AuditTOTPDisabled        = "2FA_DESACTIVADO"
)

// AuditedActions maps every order action to the audit code written in the
// same transaction as the status change.
var AuditedActions = map[Action]string{
	ActionValidate:         AuditOrderValidated,
	ActionAssign:           AuditOrderAssigned,
	ActionStart:            AuditServiceStarted,
	ActionComplete:         AuditServiceCompleted,
	ActionConfirm:          AuditServiceConfirmed,
	ActionReject:           AuditServiceRejected,
	ActionCancel:           AuditOrderCancelled,
	ActionReportImpediment: AuditImpedimentReported,
	ActionResume:           AuditServiceResumed,
}

// AuditedAppointmentActions is the appointment counterpart of AuditedActions.
var AuditedAppointmentActions = map[AppointmentAction]string{
	AppointmentActionConfirm:           AuditAppointmentConfirm,
	AppointmentActionRequestReschedule: AuditRescheduleRequested,
	AppointmentActionApproveReschedule: AuditRescheduleApproved,
	AppointmentActionCancel:            AuditAppointmentCancel,
}
