package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gestion-backend/internal/repositories"
	"gestion-backend/internal/services"
	"gestion-backend/internal/storage"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export, inspect and restore JSON backups",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup file and optionally upload it",
	Long:  "gestionctl backup export [--out DIR] [--upload]",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		upload, _ := cmd.Flags().GetBool("upload")

		cfg, pool := connect()
		defer pool.Close()

		uploader, err := storage.NewUploader(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if upload && uploader == nil {
			return fmt.Errorf("object storage is not configured")
		}
		svc := services.NewBackupService(pool, repositories.NewBackupRepository(pool), auditRepo(pool), uploader)

		result, err := svc.Export(cmd.Context(), cliActor, upload)
		if err != nil {
			return err
		}
		path := filepath.Join(out, result.FileName)
		if err := os.WriteFile(path, result.Data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		fmt.Printf("Backup written: %s\n", path)
		if result.Location != "" {
			fmt.Printf("Uploaded to:    %s\n", result.Location)
		}
		printCounts(result.Counts)
		return nil
	},
}

var backupInspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the tables and row counts of a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		summary, err := services.InspectBackup(data)
		if err != nil {
			return err
		}
		fmt.Printf("Version:  %d\n", summary.Version)
		fmt.Printf("Created:  %s\n", summary.CreatedAt)
		printCounts(summary.Counts)
		for _, t := range summary.Ignored {
			fmt.Printf("Ignored:  %s\n", t)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore FILE",
	Short: "Restore a backup (dry run unless --apply)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		_, pool := connect()
		defer pool.Close()
		svc := services.NewBackupService(pool, repositories.NewBackupRepository(pool), auditRepo(pool), nil)

		result, err := svc.Restore(cmd.Context(), cliActor, data, apply)
		if err != nil {
			return err
		}
		if !result.Applied {
			fmt.Println("Dry run, nothing written. Use --apply to restore.")
			printCounts(result.Summary.Counts)
			return nil
		}
		fmt.Println("Restore applied")
		for _, t := range repositories.BackupTables {
			if n, ok := result.Inserted[t]; ok {
				fmt.Printf("  %-14s %d inserted\n", t, n)
			}
		}
		return nil
	},
}

func printCounts(counts map[string]int) {
	for _, t := range repositories.BackupTables {
		if n, ok := counts[t]; ok {
			fmt.Printf("  %-14s %d\n", t, n)
		}
	}
}

func init() {
	backupExportCmd.Flags().String("out", ".", "Directory for the backup file")
	backupExportCmd.Flags().Bool("upload", false, "Also upload to object storage")
	backupRestoreCmd.Flags().Bool("apply", false, "Insert missing rows instead of only reporting")

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupInspectCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}
