package handlers

import (
	"net/http"
	"strconv"

	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/pkg/utils"
)

type AuditLogHandler struct {
	Repo *repositories.AuditLogRepository
}

func NewAuditLogHandler(repo *repositories.AuditLogRepository) *AuditLogHandler {
	return &AuditLogHandler{Repo: repo}
}

// List returns audit entries, newest first.
// Query: ?user_id=&order_id=&action=&limit=
func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.AuditLogFilter{
		UserID:  queryIntPtr(r, "user_id"),
		OrderID: queryIntPtr(r, "order_id"),
		Action:  r.URL.Query().Get("action"),
		Limit:   utils.QueryInt(r, "limit", 100),
	}
	logs, err := h.Repo.List(r.Context(), filter)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	utils.JSON(w, http.StatusOK, logs)
}

func queryIntPtr(r *http.Request, name string) *int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
