package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"gestion-backend/internal/metrics"
	"gestion-backend/internal/models"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/storage"
	"gestion-backend/internal/timeutil"
	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"

	"github.com/jackc/pgx/v5"
)

const BackupVersion = 1

// BackupDocument is the JSON file produced by Export.
type BackupDocument struct {
	Version   int                        `json:"version"`
	CreatedAt string                     `json:"created_at"`
	Tables    map[string]json.RawMessage `json:"tables"`
}

type BackupSummary struct {
	Version   int            `json:"version"`
	CreatedAt string         `json:"created_at"`
	Counts    map[string]int `json:"counts"`
	Ignored   []string       `json:"ignored,omitempty"`
}

type BackupResult struct {
	FileName string         `json:"file_name"`
	Counts   map[string]int `json:"counts"`
	Location string         `json:"location,omitempty"`
	Data     []byte         `json:"-"`
}

type RestoreResult struct {
	Applied  bool             `json:"applied"`
	Summary  *BackupSummary   `json:"summary"`
	Inserted map[string]int64 `json:"inserted,omitempty"`
}

type BackupStatus struct {
	LastBackupAt  *time.Time `json:"last_backup_at"`
	UploadEnabled bool       `json:"upload_enabled"`
}

type BackupService struct {
	DB      repositories.TxBeginner
	Backups *repositories.BackupRepository
	Audit   *repositories.AuditLogRepository
	Store   storage.Uploader
}

func NewBackupService(db repositories.TxBeginner, backups *repositories.BackupRepository,
	audit *repositories.AuditLogRepository, store storage.Uploader) *BackupService {
	return &BackupService{DB: db, Backups: backups, Audit: audit, Store: store}
}

// BackupFileName names a backup after the Caracas wall clock at t.
func BackupFileName(t time.Time) string {
	return "backup_" + timeutil.ToCaracas(t).Format("2006-01-02_15-04-05") + ".json"
}

// Export dumps every backed-up table into one JSON document and, when asked
// and configured, uploads it.
func (s *BackupService) Export(ctx context.Context, actor Actor, upload bool) (*BackupResult, error) {
	now := timeutil.Now()
	doc := BackupDocument{
		Version:   BackupVersion,
		CreatedAt: timeutil.ISOMillis(now),
		Tables:    make(map[string]json.RawMessage, len(repositories.BackupTables)),
	}
	for _, table := range repositories.BackupTables {
		rows, err := s.Backups.ExportTable(ctx, table)
		if err != nil {
			metrics.BackupsTotal.WithLabelValues("export", "error").Inc()
			return nil, err
		}
		doc.Tables[table] = rows
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	summary, err := InspectBackup(data)
	if err != nil {
		return nil, err
	}

	result := &BackupResult{
		FileName: BackupFileName(now),
		Counts:   summary.Counts,
		Data:     data,
	}
	if upload {
		if s.Store == nil {
			return nil, validation.Violations{"upload": "No hay almacenamiento remoto configurado"}.Err()
		}
		location, err := s.Store.Upload(ctx, result.FileName, data, "application/json")
		if err != nil {
			metrics.BackupsTotal.WithLabelValues("export", "error").Inc()
			return nil, err
		}
		result.Location = location
	}

	desc := fmt.Sprintf("Respaldo %s exportado (%s)", result.FileName, formatCounts(result.Counts))
	if result.Location != "" {
		desc += " y subido a " + result.Location
	}
	if err := s.Audit.Create(ctx, &models.AuditLog{
		UserID:      actor.auditUser(),
		Action:      workflow.AuditBackupExport,
		Description: desc,
		IPAddress:   actor.auditIP(),
	}); err != nil {
		log.Printf("[Backup] Failed to audit export: %v", err)
	}

	metrics.BackupsTotal.WithLabelValues("export", "ok").Inc()
	log.Printf("[Backup] %s exported (%d bytes)", result.FileName, len(data))
	return result, nil
}

// InspectBackup parses a backup file and counts its rows per table. Tables
// this version does not restore are listed as ignored.
func InspectBackup(data []byte) (*BackupSummary, error) {
	var doc BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, validation.Violations{"file": "El archivo no es un respaldo válido"}.Err()
	}
	if doc.Version != BackupVersion {
		return nil, validation.Violations{"file": fmt.Sprintf("Versión de respaldo no soportada: %d", doc.Version)}.Err()
	}

	known := map[string]bool{}
	for _, t := range repositories.BackupTables {
		known[t] = true
	}
	summary := &BackupSummary{Version: doc.Version, CreatedAt: doc.CreatedAt, Counts: map[string]int{}}
	for table, raw := range doc.Tables {
		if !known[table] {
			summary.Ignored = append(summary.Ignored, table)
			continue
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, validation.Violations{"file": fmt.Sprintf("La tabla %s no es una lista de filas", table)}.Err()
		}
		summary.Counts[table] = len(rows)
	}
	sort.Strings(summary.Ignored)
	return summary, nil
}

// Restore reports what a backup contains. With apply it also inserts every
// row that does not exist yet, all tables in one transaction.
func (s *BackupService) Restore(ctx context.Context, actor Actor, data []byte, apply bool) (*RestoreResult, error) {
	summary, err := InspectBackup(data)
	if err != nil {
		return nil, err
	}
	result := &RestoreResult{Summary: summary}
	if !apply {
		return result, nil
	}

	var doc BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	inserted := map[string]int64{}
	err = repositories.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		backups := s.Backups.WithTx(tx)
		for _, table := range repositories.BackupTables {
			rows, ok := doc.Tables[table]
			if !ok || summary.Counts[table] == 0 {
				continue
			}
			n, err := backups.RestoreTable(ctx, table, rows)
			if err != nil {
				return err
			}
			inserted[table] = n
		}
		return s.Audit.WithTx(tx).Create(ctx, &models.AuditLog{
			UserID:      actor.auditUser(),
			Action:      workflow.AuditBackupRestore,
			Description: fmt.Sprintf("Respaldo del %s restaurado (%s)", doc.CreatedAt, formatInserted(inserted)),
			IPAddress:   actor.auditIP(),
		})
	})
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("restore", "error").Inc()
		return nil, err
	}

	metrics.BackupsTotal.WithLabelValues("restore", "ok").Inc()
	log.Printf("[Backup] Restore applied: %s", formatInserted(inserted))
	result.Applied = true
	result.Inserted = inserted
	return result, nil
}

// Status returns when the last export happened.
func (s *BackupService) Status(ctx context.Context) (*BackupStatus, error) {
	last, err := s.Audit.LastAt(ctx, workflow.AuditBackupExport)
	if err != nil {
		return nil, err
	}
	return &BackupStatus{LastBackupAt: last, UploadEnabled: s.Store != nil}, nil
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, t := range repositories.BackupTables {
		if n, ok := counts[t]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", t, n))
		}
	}
	return strings.Join(parts, ", ")
}

func formatInserted(inserted map[string]int64) string {
	counts := make(map[string]int, len(inserted))
	for t, n := range inserted {
		counts[t] = int(n)
	}
	if len(counts) == 0 {
		return "sin filas nuevas"
	}
	return formatCounts(counts)
}
