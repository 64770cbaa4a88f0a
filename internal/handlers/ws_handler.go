package handlers

import (
	"net/http"

	"gestion-backend/internal/middleware"
	"gestion-backend/internal/realtime"
)

type WebsocketHandler struct {
	Hub *realtime.Hub
}

func NewWebsocketHandler(hub *realtime.Hub) *WebsocketHandler {
	return &WebsocketHandler{Hub: hub}
}

// Notifications upgrades the connection and streams the caller's events
func (h *WebsocketHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	h.Hub.Serve(w, r, userID)
}
