package models

import "time"

type User struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Username     *string    `json:"username,omitempty"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	FailedLogins int        `json:"failed_logins"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	TOTPSecret   string     `json:"-"`
	TOTPEnabled  bool       `json:"totp_enabled"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// LoginRequest accepts an email or a username as identifier
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	TOTPCode   string `json:"totp_code,omitempty"` // only for accounts with 2FA enabled
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CreateUserRequest is used by admins to create staff accounts
type CreateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password,omitempty"` // Optional
	Role     string `json:"role"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// TOTPSetupResponse carries the secret an authenticator app needs
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`
	URL         string `json:"otpauth_url"`
	QRCode      string `json:"qr_code"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

type TOTPCodeRequest struct {
	Code string `json:"code"`
}

type TOTPDisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

type TOTPStatus struct {
	Enabled bool `json:"enabled"`
	Pending bool `json:"pending"` // a secret was issued but not verified yet
}
