package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gestion-backend/internal/models"
	"gestion-backend/internal/workflow"

	"github.com/pquerna/otp/totp"
)

func TestSecondFactor(t *testing.T) {
	const secret = "JBSWY3DPEHPK3PXP"
	at := time.Date(2025, 1, 15, 13, 55, 0, 0, time.UTC)
	code, err := totp.GenerateCodeCustom(secret, at, totpOpts)
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	stale, err := totp.GenerateCodeCustom(secret, at.Add(-10*time.Minute), totpOpts)
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	enabled := &models.User{TOTPEnabled: true, TOTPSecret: secret}

	tests := []struct {
		name string
		user *models.User
		code string
		at   time.Time
		want error
	}{
		{"2fa off ignores the code", &models.User{}, "", at, nil},
		{"pending secret is not enforced", &models.User{TOTPSecret: secret}, "", at, nil},
		{"missing code", enabled, "  ", at, ErrTOTPRequired},
		{"current code", enabled, code, at, nil},
		{"code with spaces", enabled, " " + code + " ", at, nil},
		{"one period of drift", enabled, code, at.Add(30 * time.Second), nil},
		{"stale code", enabled, stale, at, ErrInvalidTOTPCode},
		{"not a code", enabled, "12ab", at, ErrInvalidTOTPCode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := secondFactor(tc.user, tc.code, tc.at)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTOTPServiceAdminsOnly(t *testing.T) {
	svc := &TOTPService{}
	ctx := context.Background()
	for _, role := range []workflow.Role{workflow.RoleClient, workflow.RoleAgent, workflow.RoleCoordinator, workflow.RoleTechnician} {
		actor := Actor{ID: 1, Role: role}
		if _, err := svc.Setup(ctx, actor); !errors.Is(err, workflow.ErrForbiddenRole) {
			t.Errorf("Setup as %s: %v", role, err)
		}
		if err := svc.Enable(ctx, actor, "123456"); !errors.Is(err, workflow.ErrForbiddenRole) {
			t.Errorf("Enable as %s: %v", role, err)
		}
	}
}
