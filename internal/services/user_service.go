package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/auth"
	"gestion-backend/internal/cache"
	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	ErrAccountBlocked     = fmt.Errorf("account blocked: %w", apperrors.ErrForbidden)
)

// LoginMeta describes where a login attempt came from.
type LoginMeta struct {
	IP        string
	UserAgent string
}

type UserService struct {
	Repo            *repositories.UserRepository
	LoginLogs       *repositories.LoginLogRepository
	Audit           *repositories.AuditLogRepository
	JWTManager      *auth.JWTManager
	MaxFailedLogins int
}

func NewUserService(repo *repositories.UserRepository, loginLogs *repositories.LoginLogRepository,
	audit *repositories.AuditLogRepository, jwtManager *auth.JWTManager, maxFailedLogins int) *UserService {
	if maxFailedLogins <= 0 {
		maxFailedLogins = 5
	}
	return &UserService{
		Repo:            repo,
		LoginLogs:       loginLogs,
		Audit:           audit,
		JWTManager:      jwtManager,
		MaxFailedLogins: maxFailedLogins,
	}
}

func optionalUsername(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// uniqueViolation turns duplicate email/username inserts into field errors.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := "email"
		if strings.Contains(pgErr.ConstraintName, "username") {
			field = "username"
		}
		return validation.Violations{field: "Ya está registrado"}.Err()
	}
	return err
}

// Register is the client self-signup.
func (s *UserService) Register(ctx context.Context, req validation.Registration) (*models.User, error) {
	if v := validation.ValidateRegistration(req); !v.Empty() {
		return nil, v.Err()
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     optionalUsername(req.Username),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         string(workflow.RoleClient),
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, uniqueViolation(err)
	}
	log.Printf("[Users] Client %d registered", user.ID)
	return user, nil
}

// Login authenticates by email or username. Wrong passwords count towards
// the lockout; reaching MaxFailedLogins deactivates the account.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest, meta LoginMeta) (*models.AuthResponse, error) {
	if v := validation.ValidateLogin(req.Identifier, req.Password); !v.Empty() {
		return nil, v.Err()
	}
	identifier := strings.TrimSpace(req.Identifier)

	user, err := s.Repo.GetByIdentifier(ctx, identifier)
	if errors.Is(err, pgx.ErrNoRows) {
		s.recordLogin(ctx, nil, identifier, false, "", meta)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		s.recordLogin(ctx, &user.ID, identifier, false, "", meta)
		return nil, ErrAccountBlocked
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, s.failLogin(ctx, user, identifier, meta, ErrInvalidCredentials)
	}

	// Accounts with 2FA need a current code; a wrong one counts like a wrong
	// password, a missing one does not.
	if err := secondFactor(user, req.TOTPCode, time.Now()); err != nil {
		if errors.Is(err, ErrTOTPRequired) {
			return nil, err
		}
		return nil, s.failLogin(ctx, user, identifier, meta, err)
	}

	if err := s.Repo.RegisterSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	user.FailedLogins = 0

	token, tokenID, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	s.recordLogin(ctx, &user.ID, identifier, true, tokenID, meta)

	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

// failLogin records a failed attempt and returns ErrAccountBlocked once the
// account reaches MaxFailedLogins, otherwise reason.
func (s *UserService) failLogin(ctx context.Context, user *models.User, identifier string, meta LoginMeta, reason error) error {
	s.recordLogin(ctx, &user.ID, identifier, false, "", meta)
	count, blocked, err := s.Repo.RegisterFailedLogin(ctx, user.ID, s.MaxFailedLogins)
	if err != nil {
		return err
	}
	if blocked {
		cache.InvalidateUser(ctx, user.ID)
		log.Printf("[Users] User %d blocked after %d failed logins", user.ID, count)
		s.audit(ctx, Actor{IP: meta.IP}, workflow.AuditUserLockedOut,
			fmt.Sprintf("Cuenta de %s bloqueada tras %d intentos fallidos", user.Name, count))
		return ErrAccountBlocked
	}
	return reason
}

func (s *UserService) recordLogin(ctx context.Context, userID *int, identifier string, success bool, tokenID string, meta LoginMeta) {
	entry := &models.LoginLog{
		UserID:     userID,
		Identifier: identifier,
		Success:    success,
		TokenID:    tokenID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := s.LoginLogs.Create(ctx, entry); err != nil {
		log.Printf("[Users] Failed to record login for %q: %v", identifier, err)
	}
}

// Logout closes the login_logs session of the token. Unknown sessions are not
// an error; the client drops its token either way.
func (s *UserService) Logout(ctx context.Context, tokenID string) error {
	err := s.LoginLogs.RecordLogout(ctx, tokenID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

// ShowWelcome reports whether the welcome message should be shown for this
// session. It is true once per token.
func (s *UserService) ShowWelcome(ctx context.Context, tokenID string) bool {
	return cache.ClaimWelcome(ctx, tokenID)
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

// ListUsers returns users, optionally only one role
func (s *UserService) ListUsers(ctx context.Context, role string) ([]*models.User, error) {
	if role != "" {
		parsed, err := workflow.ParseRole(role)
		if err != nil {
			return nil, validation.Violations{"role": "Rol no válido"}.Err()
		}
		role = string(parsed)
	}
	users, err := s.Repo.List(ctx, role)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

func validateStaff(name, username, email, password, role string, requirePassword bool) (workflow.Role, validation.Violations) {
	v := validation.Violations{}
	if validation.Required("name", name, v) {
		validation.MaxLen("name", name, 120, v)
	}
	if validation.Required("email", email, v) {
		validation.Email("email", email, v)
	}
	if strings.TrimSpace(username) != "" {
		validation.Username("username", username, v)
	}
	if password != "" || requirePassword {
		if validation.Required("password", password, v) {
			validation.Password("password", password, v)
		}
	}
	parsed, err := workflow.ParseRole(role)
	if err != nil {
		v["role"] = "Rol no válido"
	}
	return parsed, v
}

// CreateUser is the admin form for any role.
func (s *UserService) CreateUser(ctx context.Context, actor Actor, req *models.CreateUserRequest) (*models.User, error) {
	role, v := validateStaff(req.Name, req.Username, req.Email, req.Password, req.Role, true)
	if !v.Empty() {
		return nil, v.Err()
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     optionalUsername(req.Username),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         string(role),
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, uniqueViolation(err)
	}
	s.audit(ctx, actor, workflow.AuditUserCreated, fmt.Sprintf("Usuario %s creado con rol %s", user.Email, user.Role))
	return user, nil
}

// UpdateUser changes profile and role; a non-empty password is reset too.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id int, req *models.UpdateUserRequest) (*models.User, error) {
	role, v := validateStaff(req.Name, req.Username, req.Email, req.Password, req.Role, false)
	if !v.Empty() {
		return nil, v.Err()
	}
	user, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	user.Name = strings.TrimSpace(req.Name)
	user.Username = optionalUsername(req.Username)
	user.Email = strings.TrimSpace(req.Email)
	user.Phone = strings.TrimSpace(req.Phone)
	user.Role = string(role)
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, uniqueViolation(err)
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.Repo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	cache.InvalidateUser(ctx, id)
	s.audit(ctx, actor, workflow.AuditUserUpdated, fmt.Sprintf("Usuario %s actualizado (rol %s)", user.Email, user.Role))
	return user, nil
}

// ToggleActive blocks or unblocks an account. Admins cannot block themselves.
func (s *UserService) ToggleActive(ctx context.Context, actor Actor, id int) (*models.User, error) {
	if actor.ID == id {
		return nil, fmt.Errorf("cannot change own status: %w", apperrors.ErrConflict)
	}
	user, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	user.IsActive = !user.IsActive
	if err := s.Repo.SetActive(ctx, id, user.IsActive); err != nil {
		return nil, err
	}
	if user.IsActive {
		user.FailedLogins = 0
	}
	cache.InvalidateUser(ctx, id)

	code, verb := workflow.AuditUserBlocked, "bloqueado"
	if user.IsActive {
		code, verb = workflow.AuditUserUnblocked, "desbloqueado"
	}
	s.audit(ctx, actor, code, fmt.Sprintf("Usuario %s %s", user.Email, verb))
	return user, nil
}

func (s *UserService) ResetFailedLogins(ctx context.Context, id int) error {
	return s.Repo.ResetFailedLogins(ctx, id)
}

// ChangePassword lets any user replace their own password.
func (s *UserService) ChangePassword(ctx context.Context, actor Actor, req *models.ChangePasswordRequest) error {
	if v := validation.ValidatePasswordChange(req.CurrentPassword, req.NewPassword, req.ConfirmPassword); !v.Empty() {
		return v.Err()
	}
	user, err := s.Repo.Get(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		return validation.Violations{"current_password": "La contraseña actual no es correcta"}.Err()
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return err
	}
	s.audit(ctx, actor, workflow.AuditPasswordChanged, fmt.Sprintf("Usuario %s cambió su contraseña", user.Email))
	return nil
}

// EnsureAdmin creates an Admin account, or resets the password and
// reactivates it when the email already exists. Used by gestionctl.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	_, v := validateStaff(name, "", email, password, string(workflow.RoleAdmin), true)
	if !v.Empty() {
		return nil, v.Err()
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		existing.Role = string(workflow.RoleAdmin)
		if err := s.Repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		if err := s.Repo.UpdatePassword(ctx, existing.ID, hash); err != nil {
			return nil, err
		}
		if err := s.Repo.SetActive(ctx, existing.ID, true); err != nil {
			return nil, err
		}
		existing.IsActive = true
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         string(workflow.RoleAdmin),
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, uniqueViolation(err)
	}
	return user, nil
}

func (s *UserService) audit(ctx context.Context, actor Actor, action, description string) {
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
