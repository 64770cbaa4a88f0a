package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/validation"

	"github.com/gorilla/mux"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantFields bool
	}{
		{"not found", fmt.Errorf("order 3: %w", apperrors.ErrNotFound), http.StatusNotFound, false},
		{"validation", validation.Violations{"email": "Correo inválido"}.Err(), http.StatusBadRequest, true},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			AppError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == "" {
				t.Fatal("expected a message")
			}
			if (len(body.Fields) > 0) != tc.wantFields {
				t.Fatalf("fields = %v", body.Fields)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ Name string }
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"ana"}`))
	if err := DecodeJSON(r, &v); err != nil || v.Name != "ana" {
		t.Fatalf("DecodeJSON = %v, %+v", err, v)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	if err := DecodeJSON(r, &v); apperrors.Classify(err) != apperrors.CategoryValidation {
		t.Fatalf("malformed body should be a validation error, got %v", err)
	}
}

func TestPathInt(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "42"})
	if id, err := PathInt(r, "id"); err != nil || id != 42 {
		t.Fatalf("PathInt = %d, %v", id, err)
	}
	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "abc"})
	if _, err := PathInt(r, "id"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	if ip := ClientIP(r); ip != "10.0.0.1" {
		t.Fatalf("ClientIP = %s", ip)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:5000"
	if ip := ClientIP(r); ip != "192.168.1.5" {
		t.Fatalf("ClientIP = %s", ip)
	}
}
