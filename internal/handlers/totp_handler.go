package handlers

import (
	"net/http"

	"gestion-backend/internal/models"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"
)

type TOTPHandler struct {
	Service *services.TOTPService
}

func NewTOTPHandler(s *services.TOTPService) *TOTPHandler {
	return &TOTPHandler{Service: s}
}

// Setup returns a fresh secret and its QR code
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.Setup(r.Context(), actorFrom(r))
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Enable verifies the first code and turns 2FA on
func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	if err := h.Service.Enable(r.Context(), actorFrom(r), req.Code); err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Verificación en dos pasos activada"})
}

func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPDisableRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	if err := h.Service.Disable(r.Context(), actorFrom(r), req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Verificación en dos pasos desactivada"})
}

func (h *TOTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.Status(r.Context(), actorFrom(r))
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, status)
}
