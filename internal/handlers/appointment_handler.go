package handlers

import (
	"net/http"

	"gestion-backend/internal/models"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	Service *services.AppointmentService
}

func NewAppointmentHandler(s *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: s}
}

func (h *AppointmentHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	list, err := h.Service.ListByOrder(r.Context(), actorFrom(r), orderID)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, list)
}

// Propose schedules a new appointment for an order
func (h *AppointmentHandler) Propose(w http.ResponseWriter, r *http.Request) {
	orderID, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	var req models.ScheduleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	appt, err := h.Service.Propose(r.Context(), actorFrom(r), orderID, &req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, appt)
}

// Act handles POST /api/appointments/{id}/{action}
func (h *AppointmentHandler) Act(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	var req models.ScheduleRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.AppError(w, r, err)
			return
		}
	}
	appt, err := h.Service.Act(r.Context(), actorFrom(r), id, mux.Vars(r)["action"], &req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, appt)
}
