package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/cache"
	"gestion-backend/internal/config"
	"gestion-backend/internal/models"
	"gestion-backend/internal/workflow"

	"github.com/jackc/pgx/v5"
)

type fakeUsers map[int]*models.User

func (f fakeUsers) Get(_ context.Context, id int) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func setup(t *testing.T) (*AuthMiddleware, *auth.JWTManager) {
	t.Helper()
	cache.SetClient(nil)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "gestion-test"
	cfg.JWT.ExpirationHours = 1
	jm := auth.NewJWTManager(cfg)
	users := fakeUsers{
		1: {ID: 1, Name: "Ana", Role: "Cliente", IsActive: true},
		2: {ID: 2, Name: "Luis", Role: "Admin", IsActive: true},
		3: {ID: 3, Name: "Bloqueado", Role: "Tecnico", IsActive: false},
	}
	return NewAuthMiddleware(jm, users), jm
}

func tokenFor(t *testing.T, jm *auth.JWTManager, id int, role string) string {
	t.Helper()
	tok, _, err := jm.GenerateToken(&models.User{ID: id, Role: role})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func TestRequireRole(t *testing.T) {
	m, jm := setup(t)
	handler := m.RequireRole(workflow.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetUserIDFromContext(r.Context())
		role, _ := GetRoleFromContext(r.Context())
		if id != 2 || role != workflow.RoleAdmin {
			t.Errorf("unexpected identity %d %s", id, role)
		}
		if tid, ok := GetTokenIDFromContext(r.Context()); !ok || tid == "" {
			t.Error("missing token id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad format", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + tokenFor(t, jm, 1, "Cliente"), http.StatusForbidden},
		{"inactive", "Bearer " + tokenFor(t, jm, 3, "Tecnico"), http.StatusForbidden},
		{"unknown user", "Bearer " + tokenFor(t, jm, 99, "Admin"), http.StatusUnauthorized},
		{"admin", "Bearer " + tokenFor(t, jm, 2, "Admin"), http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAuthenticateQueryToken(t *testing.T) {
	m, jm := setup(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	tok := tokenFor(t, jm, 1, "Cliente")

	rec := httptest.NewRecorder()
	m.AuthenticateQuery(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/notifications?token="+tok, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("query token rejected: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	m.Authenticate(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me?token="+tok, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("query token must not work on regular routes: %d", rec.Code)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}
