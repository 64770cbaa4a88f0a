package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"
)

const maxBackupUpload = 64 << 20

type BackupHandler struct {
	Service *services.BackupService
}

func NewBackupHandler(s *services.BackupService) *BackupHandler {
	return &BackupHandler{Service: s}
}

// Export creates a backup. By default the file is downloaded; with
// ?upload=true it is sent to object storage and a summary is returned.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	upload, _ := strconv.ParseBool(r.URL.Query().Get("upload"))
	result, err := h.Service.Export(r.Context(), actorFrom(r), upload)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	if upload {
		utils.JSON(w, http.StatusCreated, result)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.FileName))
	w.Write(result.Data)
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.Status(r.Context())
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, status)
}

// Restore reads a backup from the request body or a multipart "file" field.
// Without ?apply=true it only reports what the file contains.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	data, err := readBackup(w, r)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	result, err := h.Service.Restore(r.Context(), actorFrom(r), data, apply)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

func readBackup(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupUpload)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("backup file: %v: %w", err, apperrors.ErrInvalidInput)
		}
		defer file.Close()
		src = file
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read backup: %v: %w", err, apperrors.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty backup: %w", apperrors.ErrInvalidInput)
	}
	return data, nil
}
