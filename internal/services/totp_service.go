package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log"
	"strings"
	"time"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/auth"
	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "GestionTecnica"

var (
	ErrTOTPRequired       = fmt.Errorf("verification code required: %w", apperrors.ErrUnauthorized)
	ErrInvalidTOTPCode    = fmt.Errorf("invalid verification code: %w", apperrors.ErrUnauthorized)
	ErrTOTPAlreadyEnabled = fmt.Errorf("2FA already enabled: %w", apperrors.ErrConflict)
	ErrTOTPNotEnabled     = fmt.Errorf("2FA not enabled: %w", apperrors.ErrInvalidInput)
	ErrTOTPNotStarted     = fmt.Errorf("2FA setup not started: %w", apperrors.ErrInvalidInput)
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// validTOTP checks code against secret at the given instant, allowing one
// period of clock drift either way.
func validTOTP(secret, code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at, totpOpts)
	return err == nil && ok
}

// secondFactor is the login check for accounts with 2FA enabled.
func secondFactor(user *models.User, code string, at time.Time) error {
	if !user.TOTPEnabled {
		return nil
	}
	if strings.TrimSpace(code) == "" {
		return ErrTOTPRequired
	}
	if !validTOTP(user.TOTPSecret, code, at) {
		return ErrInvalidTOTPCode
	}
	return nil
}

// TOTPService manages the optional authenticator-app second factor of
// administrator accounts.
type TOTPService struct {
	Users *repositories.UserRepository
	Audit *repositories.AuditLogRepository
}

func NewTOTPService(users *repositories.UserRepository, audit *repositories.AuditLogRepository) *TOTPService {
	return &TOTPService{Users: users, Audit: audit}
}

func (s *TOTPService) admin(ctx context.Context, actor Actor) (*models.User, error) {
	if actor.Role != workflow.RoleAdmin {
		return nil, fmt.Errorf("%w: %s cannot manage 2FA", workflow.ErrForbiddenRole, actor.Role)
	}
	return s.Users.Get(ctx, actor.ID)
}

// Setup issues a new secret. It stays inactive until Enable sees a valid
// code for it.
func (s *TOTPService) Setup(ctx context.Context, actor Actor) (*models.TOTPSetupResponse, error) {
	user, err := s.admin(ctx, actor)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.Users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, fmt.Errorf("store totp secret: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		URL:         key.URL(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// Enable turns 2FA on once the user proves their app produces valid codes.
func (s *TOTPService) Enable(ctx context.Context, actor Actor, code string) error {
	user, err := s.admin(ctx, actor)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return ErrTOTPAlreadyEnabled
	}
	if user.TOTPSecret == "" {
		return ErrTOTPNotStarted
	}
	if !validTOTP(user.TOTPSecret, code, time.Now()) {
		return validation.Violations{"code": "Código de verificación no válido"}.Err()
	}
	if err := s.Users.EnableTOTP(ctx, user.ID); err != nil {
		return err
	}
	log.Printf("[Users] 2FA enabled for user %d", user.ID)
	s.audit(ctx, actor, workflow.AuditTOTPEnabled, fmt.Sprintf("Verificación en dos pasos activada para %s", user.Name))
	return nil
}

// Disable turns 2FA off; it needs both the password and a current code.
func (s *TOTPService) Disable(ctx context.Context, actor Actor, req models.TOTPDisableRequest) error {
	user, err := s.admin(ctx, actor)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	v := validation.Violations{}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		v["password"] = "Contraseña incorrecta"
	}
	if !validTOTP(user.TOTPSecret, req.Code, time.Now()) {
		v["code"] = "Código de verificación no válido"
	}
	if !v.Empty() {
		return v.Err()
	}
	if err := s.Users.DisableTOTP(ctx, user.ID); err != nil {
		return err
	}
	log.Printf("[Users] 2FA disabled for user %d", user.ID)
	s.audit(ctx, actor, workflow.AuditTOTPDisabled, fmt.Sprintf("Verificación en dos pasos desactivada para %s", user.Name))
	return nil
}

func (s *TOTPService) Status(ctx context.Context, actor Actor) (*models.TOTPStatus, error) {
	user, err := s.admin(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &models.TOTPStatus{
		Enabled: user.TOTPEnabled,
		Pending: !user.TOTPEnabled && user.TOTPSecret != "",
	}, nil
}

func (s *TOTPService) audit(ctx context.Context, actor Actor, action, description string) {
	entry := &models.AuditLog{
		UserID:      actor.auditUser(),
		Action:      action,
		Description: description,
		IPAddress:   actor.auditIP(),
	}
	if err := s.Audit.Create(ctx, entry); err != nil {
		log.Printf("[Users] Failed to write audit %s: %v", action, err)
	}
}
