package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"gestion-backend/internal/auth"
	"gestion-backend/internal/cache"
	"gestion-backend/internal/models"
	"gestion-backend/internal/workflow"
	"gestion-backend/pkg/utils"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const NameKey contextKey = "name"
const EmailKey contextKey = "email"
const RoleKey contextKey = "role"
const TokenIDKey contextKey = "token_id"

// UserLookup loads the current state of a user; *repositories.UserRepository
// satisfies it.
type UserLookup interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// userSnapshot is the cached subset of a user the middleware needs.
type userSnapshot struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Authenticate validates the bearer token and loads the user.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.authenticate(false, next)
}

// AuthenticateQuery also accepts the token as ?token=, for websocket clients
// that cannot set headers.
func (m *AuthMiddleware) AuthenticateQuery(next http.Handler) http.Handler {
	return m.authenticate(true, next)
}

func (m *AuthMiddleware) authenticate(allowQuery bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok && allowQuery {
			token = r.URL.Query().Get("token")
			ok = token != ""
		}
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Se requiere autenticación")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Sesión inválida o expirada")
			return
		}

		// Current user state wins over the token so blocks apply immediately
		user, err := m.loadUser(r.Context(), claims.UserID)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Usuario no encontrado")
			return
		}

		if !user.IsActive {
			utils.Error(w, http.StatusForbidden, "Cuenta bloqueada. Contacte al administrador.")
			return
		}

		role, err := workflow.ParseRole(user.Role)
		if err != nil {
			utils.Error(w, http.StatusForbidden, "Rol no reconocido")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		ctx = context.WithValue(ctx, NameKey, user.Name)
		ctx = context.WithValue(ctx, EmailKey, user.Email)
		ctx = context.WithValue(ctx, RoleKey, role)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) loadUser(ctx context.Context, id int) (*userSnapshot, error) {
	if data, ok := cache.GetCached(ctx, cache.UserKey(id)); ok {
		var snap userSnapshot
		if json.Unmarshal(data, &snap) == nil && snap.ID == id {
			return &snap, nil
		}
	}

	user, err := m.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := &userSnapshot{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
	if data, err := json.Marshal(snap); err == nil {
		cache.SetCached(ctx, cache.UserKey(id), data, cache.UserTTL)
	}
	return snap, nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireRole authenticates the request and then checks the user's role.
func (m *AuthMiddleware) RequireRole(allowedRoles ...workflow.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := GetRoleFromContext(r.Context())
			for _, allowed := range allowedRoles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, http.StatusForbidden, "No tiene permisos para realizar esta acción")
		}))
	}
}

// RequireAdmin is a middleware that ensures the user has admin role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(workflow.RoleAdmin)(next)
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

func GetNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(NameKey).(string)
	return name, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (workflow.Role, bool) {
	role, ok := ctx.Value(RoleKey).(workflow.Role)
	return role, ok
}

func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TokenIDKey).(string)
	return id, ok
}

// WithIdentity stores a caller identity in ctx the same way Authenticate does.
func WithIdentity(ctx context.Context, userID int, role workflow.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}
