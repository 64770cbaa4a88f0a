package main

import (
	"gestion-backend/internal/database"
	"gestion-backend/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, pool := connect()
		defer pool.Close()
		return database.NewMigratorWithFS(pool, migrations.FS, ".").RunMigrations(cmd.Context())
	},
}
