package apperrors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"
)

// Category groups errors by how they are reported to the user.
type Category string

const (
	CategoryNetwork      Category = "network"
	CategoryUnauthorized Category = "unauthorized"
	CategoryPermission   Category = "permission"
	CategoryRateLimit    Category = "rate_limit"
	CategoryNotFound     Category = "not_found"
	CategoryValidation   Category = "validation"
	CategoryConflict     Category = "conflict"
	CategoryServer       Category = "server"
	CategoryUnknown      Category = "unknown"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidInput = errors.New("invalid input")
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	StatusCode() int
}

var messages = map[Category]string{
	CategoryNetwork:      "Error de conexión. Verifique su conexión e intente nuevamente.",
	CategoryUnauthorized: "Sesión inválida o expirada. Inicie sesión nuevamente.",
	CategoryPermission:   "No tiene permisos para realizar esta acción.",
	CategoryRateLimit:    "Demasiadas solicitudes. Espere un momento e intente nuevamente.",
	CategoryNotFound:     "El recurso solicitado no existe.",
	CategoryValidation:   "Los datos enviados no son válidos.",
	CategoryConflict:     "La operación no es válida para el estado actual.",
	CategoryServer:       "Error del servidor. Intente más tarde.",
	CategoryUnknown:      "Ocurrió un error inesperado.",
}

var statuses = map[Category]int{
	CategoryNetwork:      http.StatusServiceUnavailable,
	CategoryUnauthorized: http.StatusUnauthorized,
	CategoryPermission:   http.StatusForbidden,
	CategoryRateLimit:    http.StatusTooManyRequests,
	CategoryNotFound:     http.StatusNotFound,
	CategoryValidation:   http.StatusBadRequest,
	CategoryConflict:     http.StatusConflict,
	CategoryServer:       http.StatusInternalServerError,
	CategoryUnknown:      http.StatusInternalServerError,
}

// Message returns the user-facing text of a category.
func (c Category) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[CategoryUnknown]
}

// HTTPStatus returns the response status of a category.
func (c Category) HTTPStatus() int {
	if s, ok := statuses[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Classify inspects err and returns its category. It only drives messages
// and status codes; nothing retries based on it except the email outbox.
func Classify(err error) Category {
	if err == nil {
		return ""
	}

	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, workflow.ErrUnknownAction),
		errors.Is(err, workflow.ErrUnknownStatus),
		errors.Is(err, workflow.ErrUnknownAppointmentStatus):
		return CategoryValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return CategoryNotFound
	case errors.Is(err, ErrUnauthorized):
		return CategoryUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, workflow.ErrForbiddenRole):
		return CategoryPermission
	case errors.Is(err, ErrConflict),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrTechnicianRequired):
		return CategoryConflict
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimit
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPg(pgErr)
	}

	if isNetwork(err) {
		return CategoryNetwork
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		if c := classifyStatus(sc.StatusCode()); c != "" {
			return c
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "row-level security"), strings.Contains(msg, "permission denied"):
		return CategoryPermission
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return CategoryRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection refused"):
		return CategoryNetwork
	}
	return CategoryUnknown
}

func classifyPg(pgErr *pgconn.PgError) Category {
	switch pgErr.Code {
	case "42501":
		return CategoryPermission
	case "23505":
		return CategoryConflict
	case "40001", "40P01":
		return CategoryConflict
	}
	if len(pgErr.Code) < 2 {
		return CategoryUnknown
	}
	switch pgErr.Code[:2] {
	case "22", "23":
		return CategoryValidation
	case "08", "53", "57", "58", "XX":
		return CategoryServer
	}
	return CategoryUnknown
}

func classifyStatus(code int) Category {
	switch {
	case code == http.StatusTooManyRequests:
		return CategoryRateLimit
	case code == http.StatusUnauthorized:
		return CategoryUnauthorized
	case code == http.StatusForbidden:
		return CategoryPermission
	case code == http.StatusNotFound:
		return CategoryNotFound
	case code >= 500:
		return CategoryServer
	case code >= 400:
		return CategoryValidation
	}
	return ""
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Retryable reports whether a delivery attempt that failed with err may
// succeed later.
func Retryable(err error) bool {
	switch Classify(err) {
	case CategoryNetwork, CategoryRateLimit, CategoryServer, CategoryUnknown:
		return true
	}
	return false
}

// FieldErrors returns the field violations carried by err, if any.
func FieldErrors(err error) validation.Violations {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
