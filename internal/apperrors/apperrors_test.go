package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"
)

type upstreamErr struct{ code int }

func (e upstreamErr) Error() string   { return fmt.Sprintf("upstream returned %d", e.code) }
func (e upstreamErr) StatusCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, ""},
		{"no rows", fmt.Errorf("get order: %w", pgx.ErrNoRows), CategoryNotFound},
		{"sentinel not found", fmt.Errorf("order 4: %w", ErrNotFound), CategoryNotFound},
		{"rls", &pgconn.PgError{Code: "42501", Message: "new row violates row-level security policy"}, CategoryPermission},
		{"unique", &pgconn.PgError{Code: "23505"}, CategoryConflict},
		{"check violation", &pgconn.PgError{Code: "23514"}, CategoryValidation},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, CategoryServer},
		{"connection failure", &pgconn.PgError{Code: "08006"}, CategoryServer},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), CategoryNetwork},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, CategoryNetwork},
		{"forbidden role", fmt.Errorf("apply: %w", workflow.ErrForbiddenRole), CategoryPermission},
		{"bad transition", fmt.Errorf("apply: %w", workflow.ErrInvalidTransition), CategoryConflict},
		{"technician required", workflow.ErrTechnicianRequired, CategoryConflict},
		{"validation", validation.Violations{"email": "x"}.Err(), CategoryValidation},
		{"upstream 429", upstreamErr{429}, CategoryRateLimit},
		{"upstream 503", upstreamErr{503}, CategoryServer},
		{"rate limit text", errors.New("Rate limit exceeded"), CategoryRateLimit},
		{"rls text", errors.New("permission denied for table orders"), CategoryPermission},
		{"unknown", errors.New("boom"), CategoryUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestCategoryResponse(t *testing.T) {
	if CategoryNotFound.HTTPStatus() != http.StatusNotFound {
		t.Fatal("not found should map to 404")
	}
	if CategoryConflict.HTTPStatus() != http.StatusConflict {
		t.Fatal("conflict should map to 409")
	}
	if Category("bogus").HTTPStatus() != http.StatusInternalServerError {
		t.Fatal("unknown category should map to 500")
	}
	for c := range messages {
		if c.Message() == "" {
			t.Errorf("empty message for %s", c)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(upstreamErr{502}) {
		t.Error("5xx should be retryable")
	}
	if Retryable(upstreamErr{400}) {
		t.Error("4xx should not be retryable")
	}
	if Retryable(fmt.Errorf("send: %w", ErrInvalidInput)) {
		t.Error("invalid input should not be retryable")
	}
}

func TestFieldErrors(t *testing.T) {
	err := fmt.Errorf("register: %w", validation.Violations{"email": "bad"}.Err())
	if FieldErrors(err)["email"] != "bad" {
		t.Fatal("expected wrapped field errors")
	}
	if FieldErrors(errors.New("x")) != nil {
		t.Fatal("expected nil for plain error")
	}
}
