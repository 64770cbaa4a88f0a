package main

import (
	"gestion-backend/internal/config"
	"gestion-backend/internal/db"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/services"
	"gestion-backend/internal/workflow"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "gestionctl",
	Short:        "Sistema de Gestión Técnica administration",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// cliActor is recorded in audit rows written from the command line.
var cliActor = services.Actor{Role: workflow.RoleAdmin, IP: "cli"}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(userCmd)
}

func connect() (*config.Config, *pgxpool.Pool) {
	cfg := config.Load()
	return cfg, db.Connect(cfg)
}

func auditRepo(pool *pgxpool.Pool) *repositories.AuditLogRepository {
	return repositories.NewAuditLogRepository(pool)
}
