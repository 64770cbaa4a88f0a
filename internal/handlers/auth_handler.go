package handlers

import (
	"errors"
	"net/http"

	"gestion-backend/internal/middleware"
	"gestion-backend/internal/models"
	"gestion-backend/internal/services"
	"gestion-backend/internal/validation"
	"gestion-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
}

func NewAuthHandler(s *services.UserService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Register handles client self-signup
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.Registration
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}

	user, err := h.Service.Register(r.Context(), req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

// Login handles authentication by email or username
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}

	meta := services.LoginMeta{IP: utils.ClientIP(r), UserAgent: r.UserAgent()}
	resp, err := h.Service.Login(r.Context(), &req, meta)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(w, http.StatusUnauthorized, "Usuario o contraseña incorrectos")
		return
	case errors.Is(err, services.ErrAccountBlocked):
		utils.Error(w, http.StatusForbidden, "Su cuenta está bloqueada. Contacte al administrador.")
		return
	case errors.Is(err, services.ErrTOTPRequired):
		utils.JSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error":         "Ingrese el código de su aplicación de autenticación",
			"totp_required": true,
		})
		return
	case errors.Is(err, services.ErrInvalidTOTPCode):
		utils.Error(w, http.StatusUnauthorized, "Código de verificación no válido")
		return
	case err != nil:
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Logout closes the session of the presented token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenID, _ := middleware.GetTokenIDFromContext(r.Context())
	if err := h.Service.Logout(r.Context(), tokenID); err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
}

// Welcome reports whether the welcome message is due for this session
func (h *AuthHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	tokenID, _ := middleware.GetTokenIDFromContext(r.Context())
	name, _ := middleware.GetNameFromContext(r.Context())
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"show": h.Service.ShowWelcome(r.Context(), tokenID),
		"name": name,
	})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	user, err := h.Service.GetUser(r.Context(), userID)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// ChangePassword updates the password of the authenticated user
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	if err := h.Service.ChangePassword(r.Context(), actorFrom(r), &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada"})
}
