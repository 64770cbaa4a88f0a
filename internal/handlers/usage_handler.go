package handlers

import (
	"net/http"

	"gestion-backend/internal/services"
	"gestion-backend/internal/workflow"
	"gestion-backend/pkg/utils"
)

type UsageHandler struct {
	Service *services.UsageService
}

func NewUsageHandler(s *services.UsageService) *UsageHandler {
	return &UsageHandler{Service: s}
}

// StorageUsage reports database size against the configured limit
func (h *UsageHandler) StorageUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Service.Usage(r.Context())
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, usage)
}

// Badges returns the display badge of every known status, or of ?status=
func Badges(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("status"); s != "" {
		utils.JSON(w, http.StatusOK, workflow.BadgeFor(s))
		return
	}
	utils.JSON(w, http.StatusOK, workflow.Badges())
}
