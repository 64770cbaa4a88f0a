package handlers

import (
	"net/http"

	"gestion-backend/internal/middleware"
	"gestion-backend/internal/models"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(s *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: s}
}

// List returns the caller's notifications, newest first, with the unread
// count and the polling interval the client should use
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	page, err := h.Service.List(r.Context(), userID, utils.QueryInt(r, "limit", 0), utils.QueryInt(r, "offset", 0))
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	n, err := h.Service.UnreadCount(r.Context(), userID)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.Service.MarkRead(r.Context(), userID, id); err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Notificación marcada como leída"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	n, err := h.Service.MarkAllRead(r.Context(), userID)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Broadcast sends an announcement to every active user of a role
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req models.BroadcastRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	n, err := h.Service.Broadcast(r.Context(), actorFrom(r), req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]int{"recipients": n})
}
