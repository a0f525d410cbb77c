package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Username: "admin", Role: domain.RoleAdmin}
}

func TestTokenService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, err := NewTokenService("test-secret", "apartment-sales")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := testUser()
	token, err := svc.GenerateToken(ctx, user, time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "admin" || claims.Role != domain.RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := NewTokenService("test-secret", "apartment-sales")
	other, _ := NewTokenService("other-secret", "apartment-sales")
	foreignIssuer, _ := NewTokenService("test-secret", "someone-else")

	expired, _ := svc.GenerateToken(ctx, testUser(), -time.Minute)
	wrongKey, _ := other.GenerateToken(ctx, testUser(), time.Hour)
	wrongIssuer, _ := foreignIssuer.GenerateToken(ctx, testUser(), time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: "apartment-sales"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "wrong key", token: wrongKey},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "alg none", token: unsigned},
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, tt.token)
			if !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got: %v", err)
			}
		})
	}
}

func TestNewTokenService_EmptyKey(t *testing.T) {
	if _, err := NewTokenService("", "x"); err == nil {
		t.Error("expected error for empty signing key")
	}
}
