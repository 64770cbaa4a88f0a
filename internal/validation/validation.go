package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gestion-backend/internal/workflow"
)

// Violations maps a request field to a user-facing message.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns v as an error, or nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return &Error{Fields: v}
}

// Error carries field violations through service boundaries.
type Error struct {
	Fields Violations
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	PasswordMinLen = 8
)

const (
	msgRequired         = "Este campo es obligatorio"
	msgInvalidEmail     = "Ingrese un correo electrónico válido"
	msgUsernameLength   = "El usuario debe tener entre 3 y 30 caracteres"
	msgUsernameChars    = "El usuario solo puede contener letras, números, puntos, guiones y guiones bajos"
	msgPasswordLength   = "La contraseña debe tener al menos 8 caracteres"
	msgPasswordStrength = "La contraseña debe incluir letras y números"
	msgPasswordMismatch = "Las contraseñas no coinciden"
	msgPasswordReused   = "La nueva contraseña debe ser diferente a la actual"
	msgInvalidPhone     = "Ingrese un teléfono válido"
	msgInvalidPriority  = "Prioridad inválida"
	msgTooLong          = "El texto es demasiado largo"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9\s-]{7,20}$`)
)

// Basic validators
func Required(field, value string, v Violations) bool {
	if strings.TrimSpace(value) == "" {
		v[field] = msgRequired
		return false
	}
	return true
}

func MaxLen(field, value string, limit int, v Violations) {
	if utf8.RuneCountInString(value) > limit {
		v[field] = msgTooLong
	}
}

func Email(field, value string, v Violations) {
	if !IsEmail(value) {
		v[field] = msgInvalidEmail
	}
}

// IsEmail accepts a bare address with a dotted domain.
func IsEmail(value string) bool {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	at := strings.LastIndex(value, "@")
	return at > 0 && strings.Contains(value[at+1:], ".")
}

func Username(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n < UsernameMinLen || n > UsernameMaxLen {
		v[field] = msgUsernameLength
		return
	}
	if !usernamePattern.MatchString(value) {
		v[field] = msgUsernameChars
	}
}

// Password enforces the strength rules for a new password.
func Password(field, value string, v Violations) {
	if utf8.RuneCountInString(value) < PasswordMinLen {
		v[field] = msgPasswordLength
		return
	}
	var letter, digit bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		v[field] = msgPasswordStrength
	}
}

// ValidateLogin checks the login form. Identifiers containing "@" follow
// email rules and anything else follows username rules.
func ValidateLogin(identifier, password string) Violations {
	v := Violations{}
	if Required("identifier", identifier, v) {
		if strings.Contains(identifier, "@") {
			Email("identifier", identifier, v)
		} else {
			Username("identifier", identifier, v)
		}
	}
	if password == "" {
		v["password"] = msgRequired
	}
	return v
}

// ValidatePasswordChange checks the change-password form.
func ValidatePasswordChange(current, next, confirm string) Violations {
	v := Violations{}
	if current == "" {
		v["current_password"] = msgRequired
	}
	if next == "" {
		v["new_password"] = msgRequired
	} else {
		Password("new_password", next, v)
		if _, bad := v["new_password"]; !bad && current != "" && next == current {
			v["new_password"] = msgPasswordReused
		}
	}
	if confirm == "" {
		v["confirm_password"] = msgRequired
	} else if next != "" && confirm != next {
		v["confirm_password"] = msgPasswordMismatch
	}
	return v
}

type Registration struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ValidateRegistration checks the self-signup form.
func ValidateRegistration(r Registration) Violations {
	v := Violations{}
	if Required("name", r.Name, v) {
		MaxLen("name", r.Name, 120, v)
	}
	if Required("email", r.Email, v) {
		Email("email", r.Email, v)
	}
	if strings.TrimSpace(r.Username) != "" {
		Username("username", r.Username, v)
	}
	if strings.TrimSpace(r.Phone) != "" && !phonePattern.MatchString(strings.TrimSpace(r.Phone)) {
		v["phone"] = msgInvalidPhone
	}
	if r.Password == "" {
		v["password"] = msgRequired
	} else {
		Password("password", r.Password, v)
	}
	if r.ConfirmPassword == "" {
		v["confirm_password"] = msgRequired
	} else if r.Password != "" && r.ConfirmPassword != r.Password {
		v["confirm_password"] = msgPasswordMismatch
	}
	return v
}

// ValidateOrderRequest checks a new service order.
func ValidateOrderRequest(serviceType, description, address, priority string) Violations {
	v := Violations{}
	if Required("service_type", serviceType, v) {
		MaxLen("service_type", serviceType, 100, v)
	}
	if Required("description", description, v) {
		MaxLen("description", description, 2000, v)
	}
	if Required("address", address, v) {
		MaxLen("address", address, 300, v)
	}
	if _, err := workflow.ParsePriority(priority); err != nil {
		v["priority"] = msgInvalidPriority
	}
	return v
}
