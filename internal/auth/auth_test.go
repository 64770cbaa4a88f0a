package auth

import (
	"testing"

	"gestion-backend/internal/config"
	"gestion-backend/internal/models"
)

func testManager(secret string) *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.Issuer = "gestion-test"
	cfg.JWT.ExpirationHours = 1
	return NewJWTManager(cfg)
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager("s3cret")
	user := &models.User{ID: 42, Email: "tec@example.com", Role: "Tecnico"}

	token, tokenID, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "Tecnico" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.TokenID() != tokenID || tokenID == "" {
		t.Fatalf("token id mismatch: %q vs %q", claims.TokenID(), tokenID)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	m := testManager("s3cret")
	user := &models.User{ID: 1, Role: "Cliente"}
	_, a, _ := m.GenerateToken(user)
	_, b, _ := m.GenerateToken(user)
	if a == b {
		t.Fatal("two logins must not share a token id")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _, err := testManager("one").GenerateToken(&models.User{ID: 1})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := testManager("two").ValidateToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("clave1234")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "clave1234") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "otra") {
		t.Fatal("wrong password verified")
	}
	if VerifyPassword("!restored", "clave1234") {
		t.Fatal("placeholder hash must never verify")
	}
}
