package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/cache"
	"gestion-backend/internal/config"
	"gestion-backend/internal/handlers"
	"gestion-backend/internal/middleware"
	"gestion-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type fakeUsers map[int]*models.User

func (f fakeUsers) Get(_ context.Context, id int) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func testRouter(t *testing.T) (http.Handler, *auth.JWTManager) {
	t.Helper()
	cache.SetClient(nil)
	cfg := &config.Config{}
	cfg.JWT.Secret = "router-secret"
	cfg.JWT.Issuer = "gestion-test"
	cfg.JWT.ExpirationHours = 1
	jm := auth.NewJWTManager(cfg)
	users := fakeUsers{
		1: {ID: 1, Name: "Ana", Role: "Cliente", IsActive: true},
		2: {ID: 2, Name: "Luis", Role: "Tecnico", IsActive: true},
	}
	h := Handlers{
		Auth:   &handlers.AuthHandler{},
		Health: handlers.NewHealthHandler(nil),
	}
	return NewRouter(h, middleware.NewAuthMiddleware(jm, users)), jm
}

func TestRouterAccess(t *testing.T) {
	router, jm := testRouter(t)
	token := func(id int, role string) string {
		tok, _, err := jm.GenerateToken(&models.User{ID: id, Role: role})
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		return tok
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", "GET", "/health", "", http.StatusOK},
		{"metrics is public", "GET", "/metrics", "", http.StatusOK},
		{"api needs a token", "GET", "/api/orders", "", http.StatusUnauthorized},
		{"badges for any user", "GET", "/api/badges", token(1, "Cliente"), http.StatusOK},
		{"admin area rejects clients", "GET", "/api/admin/users", token(1, "Cliente"), http.StatusForbidden},
		{"2fa setup is admin only", "POST", "/api/admin/2fa/setup", token(2, "Tecnico"), http.StatusForbidden},
		{"technicians cannot create orders", "POST", "/api/orders", token(2, "Tecnico"), http.StatusForbidden},
		{"clients cannot propose appointments", "POST", "/api/orders/5/appointments", token(1, "Cliente"), http.StatusForbidden},
		{"unknown route", "GET", "/api/nothing-here", token(1, "Cliente"), http.StatusNotFound},
		{"websocket needs a token", "GET", "/ws/notifications", "", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("%s %s = %d, want %d (%s)", tc.method, tc.path, rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestWelcomeWithoutRedis(t *testing.T) {
	router, jm := testRouter(t)
	tok, _, _ := jm.GenerateToken(&models.User{ID: 1, Role: "Cliente"})

	req := httptest.NewRequest("POST", "/api/session/welcome", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Show bool   `json:"show"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Show || body.Name != "Ana" {
		t.Fatalf("unexpected body %+v", body)
	}
}
