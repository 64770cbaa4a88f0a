package handlers

import (
	"net/http"

	"gestion-backend/internal/models"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler {
	return &UserHandler{Service: s}
}

// ListUsers returns all users, optionally filtered by ?role=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	user, err := h.Service.CreateUser(r.Context(), actorFrom(r), &req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

// UpdateUser updates an existing user
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	var req models.UpdateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	user, err := h.Service.UpdateUser(r.Context(), actorFrom(r), id, &req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// ToggleActive blocks or unblocks a user
func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	user, err := h.Service.ToggleActive(r.Context(), actorFrom(r), id)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) ResetFailedLogins(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	if err := h.Service.ResetFailedLogins(r.Context(), id); err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Intentos fallidos reiniciados"})
}
