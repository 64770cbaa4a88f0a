package handlers

import (
	"net/http"

	"gestion-backend/internal/middleware"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"
)

// actorFrom builds the acting user from the authenticated request.
func actorFrom(r *http.Request) services.Actor {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())
	return services.Actor{ID: id, Role: role, IP: utils.ClientIP(r)}
}
