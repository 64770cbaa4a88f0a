package handlers

import (
	"net/http"

	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/pkg/utils"
)

type LoginLogHandler struct {
	Repo *repositories.LoginLogRepository
}

func NewLoginLogHandler(repo *repositories.LoginLogRepository) *LoginLogHandler {
	return &LoginLogHandler{Repo: repo}
}

// ListLoginLogs returns login attempts and their logout times
func (h *LoginLogHandler) ListLoginLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Repo.List(r.Context(), utils.QueryInt(r, "limit", 200))
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*models.LoginLog{}
	}
	utils.JSON(w, http.StatusOK, logs)
}
