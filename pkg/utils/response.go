package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"gestion-backend/internal/apperrors"

	"github.com/gorilla/mux"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string            `json:"error"`
	Category string            `json:"category,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes a plain message with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// AppError classifies err and writes the user-facing message for its category.
// Field violations are included so forms can highlight the offending inputs.
func AppError(w http.ResponseWriter, r *http.Request, err error) {
	category := apperrors.Classify(err)
	status := category.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed: %v", r.Method, r.URL.Path, err)
	}

	body := ErrorBody{
		Error:    category.Message(),
		Category: string(category),
	}
	if fields := apperrors.FieldErrors(err); len(fields) > 0 {
		body.Fields = fields
	}
	JSON(w, status, body)
}

// DecodeJSON reads a JSON body into v. Malformed bodies are reported as
// invalid input.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty body: %w", apperrors.ErrInvalidInput)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("decode body: %v: %w", err, apperrors.ErrInvalidInput)
	}
	return nil
}

// PathInt reads a numeric route variable.
func PathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, apperrors.ErrInvalidInput)
	}
	return n, nil
}

// QueryInt returns a positive integer query parameter or def.
func QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// ClientIP returns the caller address, honouring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
