package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/cache"
	"gestion-backend/internal/config"
	"gestion-backend/internal/database"
	"gestion-backend/internal/db"
	"gestion-backend/internal/email"
	"gestion-backend/internal/handlers"
	"gestion-backend/internal/health"
	h "gestion-backend/internal/http"
	"gestion-backend/internal/middleware"
	"gestion-backend/internal/realtime"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/services"
	"gestion-backend/internal/storage"
	"gestion-backend/migrations"
)

func main() {
	skipMigrations := flag.Bool("skip-migrations", false, "do not run pending migrations on startup")
	flag.Parse()

	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()
	log.Println("[DB] Connected to PostgreSQL")

	if !*skipMigrations {
		migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
		if err := migrator.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
	}

	// Redis is optional: without it every cache helper falls back to the database
	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Unavailable (%v), caching disabled", err)
	} else {
		log.Printf("[Redis] Connected to %s", cfg.Redis.Addr)
	}
	defer cache.Close()

	hub := realtime.NewHub(cfg.Server.CorsAllowedOrigins)
	go hub.Run()

	uploader, err := storage.NewUploader(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Object storage: %v", err)
	}
	if uploader == nil {
		log.Println("[Backup] Object storage not configured, uploads disabled")
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	loginLogRepo := repositories.NewLoginLogRepository(pool)
	auditRepo := repositories.NewAuditLogRepository(pool)
	orderRepo := repositories.NewOrderRepository(pool)
	appointmentRepo := repositories.NewAppointmentRepository(pool)
	executionRepo := repositories.NewExecutionRepository(pool)
	notificationRepo := repositories.NewNotificationRepository(pool)
	outboxRepo := repositories.NewOutboxRepository(pool)
	backupRepo := repositories.NewBackupRepository(pool)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	userService := services.NewUserService(userRepo, loginLogRepo, auditRepo, jwtManager, cfg.Workflow.MaxFailedLogins)
	notificationService := services.NewNotificationService(pool, userRepo, notificationRepo, outboxRepo, auditRepo, hub, cfg)
	orderService := services.NewOrderService(pool, orderRepo, appointmentRepo, executionRepo, userRepo, auditRepo, notificationService)
	appointmentService := services.NewAppointmentService(pool, orderRepo, appointmentRepo, notificationService)
	backupService := services.NewBackupService(pool, backupRepo, auditRepo, uploader)
	usageService := services.NewUsageService(backupRepo, cfg.Workflow.DatabaseSizeLimit)
	reportService := services.NewReportService(orderService)
	totpService := services.NewTOTPService(userRepo, auditRepo)

	sender := email.NewFromConfig(cfg)
	log.Printf("[Email] Using provider: %s", sender.Name())
	dispatcher := services.NewOutboxDispatcher(outboxRepo, sender,
		cfg.Workflow.OutboxInterval, cfg.Workflow.OutboxBatchSize, cfg.Workflow.OutboxMaxAttempts)
	dispatcher.Start()

	collector := services.NewMetricsCollector(usageService, outboxRepo, time.Minute)
	collector.Start()

	// Handlers
	router := h.NewRouter(h.Handlers{
		Auth:          handlers.NewAuthHandler(userService),
		Users:         handlers.NewUserHandler(userService),
		Orders:        handlers.NewOrderHandler(orderService, reportService),
		Appointments:  handlers.NewAppointmentHandler(appointmentService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		AuditLogs:     handlers.NewAuditLogHandler(auditRepo),
		LoginLogs:     handlers.NewLoginLogHandler(loginLogRepo),
		Backups:       handlers.NewBackupHandler(backupService),
		Usage:         handlers.NewUsageHandler(usageService),
		Health:        handlers.NewHealthHandler(health.NewHealthChecker(pool, cache.IsHealthy)),
		Websocket:     handlers.NewWebsocketHandler(hub),
		TOTP:          handlers.NewTOTPHandler(totpService),
	}, middleware.NewAuthMiddleware(jwtManager, userRepo))

	// Wrap with panic recovery and CORS
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(corsMiddleware(router))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s (environment: %s)", srv.Addr, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	dispatcher.Stop()
	collector.Stop()
	hub.Stop()
	log.Println("Server stopped")
}
