package http

import (
	"net/http"

	"gestion-backend/internal/handlers"
	"gestion-backend/internal/middleware"
	"gestion-backend/internal/workflow"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Orders        *handlers.OrderHandler
	Appointments  *handlers.AppointmentHandler
	Notifications *handlers.NotificationHandler
	AuditLogs     *handlers.AuditLogHandler
	LoginLogs     *handlers.LoginLogHandler
	Backups       *handlers.BackupHandler
	Usage         *handlers.UsageHandler
	Health        *handlers.HealthHandler
	Websocket     *handlers.WebsocketHandler
	TOTP          *handlers.TOTPHandler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware, middleware.RequestLogger)

	// Public API routes - Authentication
	r.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")

	// Protected API routes - every authenticated role
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/logout", h.Auth.Logout).Methods("POST")
	api.HandleFunc("/session/welcome", h.Auth.Welcome).Methods("POST")
	api.HandleFunc("/me", h.Auth.Me).Methods("GET")
	api.HandleFunc("/me/password", h.Auth.ChangePassword).Methods("PUT")
	api.HandleFunc("/badges", handlers.Badges).Methods("GET")

	// Orders: visibility and transitions are enforced per order
	api.HandleFunc("/orders", h.Orders.ListOrders).Methods("GET")
	api.Handle("/orders", authMiddleware.RequireRole(workflow.RoleClient, workflow.RoleAgent, workflow.RoleAdmin)(
		http.HandlerFunc(h.Orders.CreateOrder))).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}", h.Orders.GetOrder).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}/actions", h.Orders.AvailableActions).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}/actions/{action}", h.Orders.ApplyAction).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/report", h.Orders.Report).Methods("GET")
	api.HandleFunc("/orders/{id:[0-9]+}/executions", h.Orders.ListExecutions).Methods("GET")

	// Appointments
	api.HandleFunc("/orders/{id:[0-9]+}/appointments", h.Appointments.ListByOrder).Methods("GET")
	api.Handle("/orders/{id:[0-9]+}/appointments", authMiddleware.RequireRole(workflow.RoleCoordinator, workflow.RoleAdmin)(
		http.HandlerFunc(h.Appointments.Propose))).Methods("POST")
	api.HandleFunc("/appointments/{id:[0-9]+}/{action}", h.Appointments.Act).Methods("POST")

	// Notifications
	api.HandleFunc("/notifications", h.Notifications.List).Methods("GET")
	api.HandleFunc("/notifications/unread-count", h.Notifications.UnreadCount).Methods("GET")
	api.HandleFunc("/notifications/read-all", h.Notifications.MarkAllRead).Methods("PATCH")
	api.HandleFunc("/notifications/{id:[0-9]+}/read", h.Notifications.MarkRead).Methods("PATCH")

	// Admin-only API routes
	adminAPI := api.PathPrefix("/admin").Subrouter()
	adminAPI.Use(authMiddleware.RequireAdmin)

	adminAPI.HandleFunc("/users", h.Users.ListUsers).Methods("GET")
	adminAPI.HandleFunc("/users", h.Users.CreateUser).Methods("POST")
	adminAPI.HandleFunc("/users/{id:[0-9]+}", h.Users.GetUser).Methods("GET")
	adminAPI.HandleFunc("/users/{id:[0-9]+}", h.Users.UpdateUser).Methods("PUT")
	adminAPI.HandleFunc("/users/{id:[0-9]+}/toggle-active", h.Users.ToggleActive).Methods("PATCH")
	adminAPI.HandleFunc("/users/{id:[0-9]+}/reset-failed-logins", h.Users.ResetFailedLogins).Methods("PATCH")

	adminAPI.HandleFunc("/notifications/broadcast", h.Notifications.Broadcast).Methods("POST")
	adminAPI.HandleFunc("/audit-logs", h.AuditLogs.List).Methods("GET")
	adminAPI.HandleFunc("/login-logs", h.LoginLogs.ListLoginLogs).Methods("GET")

	adminAPI.HandleFunc("/backups", h.Backups.Export).Methods("POST")
	adminAPI.HandleFunc("/backups/status", h.Backups.Status).Methods("GET")
	adminAPI.HandleFunc("/backups/restore", h.Backups.Restore).Methods("POST")
	adminAPI.HandleFunc("/storage-usage", h.Usage.StorageUsage).Methods("GET")

	// Two-factor authentication of the admin's own account
	adminAPI.HandleFunc("/2fa", h.TOTP.Status).Methods("GET")
	adminAPI.HandleFunc("/2fa/setup", h.TOTP.Setup).Methods("POST")
	adminAPI.HandleFunc("/2fa/enable", h.TOTP.Enable).Methods("POST")
	adminAPI.HandleFunc("/2fa/disable", h.TOTP.Disable).Methods("POST")

	// Websocket push; browsers pass the token as ?token=
	r.Handle("/ws/notifications", authMiddleware.AuthenticateQuery(
		http.HandlerFunc(h.Websocket.Notifications))).Methods("GET")

	// Health endpoints (no auth required - for probes)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
