package main

import (
	"fmt"
	"os"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/services"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an Admin account, or reset the password of an existing one",
	Long:  "gestionctl user create-admin --email EMAIL [--name NAME]\n\nThe password is read from --password or GESTION_ADMIN_PASSWORD.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("GESTION_ADMIN_PASSWORD")
		}
		if email == "" || password == "" {
			return fmt.Errorf("--email and a password are required")
		}

		cfg, pool := connect()
		defer pool.Close()
		svc := services.NewUserService(repositories.NewUserRepository(pool), repositories.NewLoginLogRepository(pool),
			auditRepo(pool), auth.NewJWTManager(cfg), cfg.Workflow.MaxFailedLogins)

		user, err := svc.EnsureAdmin(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("Admin ready: %s (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("name", "Administrador", "Display name")
	createAdminCmd.Flags().String("email", "", "Login email")
	createAdminCmd.Flags().String("password", "", "Password (or GESTION_ADMIN_PASSWORD)")

	userCmd.AddCommand(createAdminCmd)
}
