package auth

import (
	"testing"
	"time"

	"github.com/AutoDeal/AutoDeal/internal/common/config"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAccessToken(t *testing.T) {
	cfg := config.AuthConfig{
		JWTSecret: "test-secret",
		Issuer:    "autodeal",
		Audience:  "autodeal-api",
	}

	token, expiresAt, err := GenerateAccessToken(cfg, "buyer-1", []string{"user"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 55*time.Minute {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tk *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "buyer-1" || claims.Issuer != "autodeal" {
		t.Fatalf("unexpected claims: %+v", claims.RegisteredClaims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestGenerateAccessTokenValidation(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "test-secret"}
	if _, _, err := GenerateAccessToken(cfg, "", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty subject")
	}
	if _, _, err := GenerateAccessToken(config.AuthConfig{}, "u1", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
