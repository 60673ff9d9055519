package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerify(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := SignJWT(Claims{Name: "Ana Ruiz", Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "7" || claims.Role != "admin" || claims.Name != "Ana Ruiz" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	expired, _ := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	valid, _ := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}})
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + ".invalidsig"

	for name, token := range map[string]string{"expired": expired, "tampered": tampered, "garbage": "abc"} {
		if _, err := VerifyJWT(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	t.Setenv("JWT_SECRET", "other-secret")
	if _, err := VerifyJWT(valid); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected secret mismatch to fail, got %v", err)
	}
}

func TestSignRequiresSubject(t *testing.T) {
	if _, err := SignJWT(Claims{Name: "nobody"}); err == nil {
		t.Fatalf("expected error without subject")
	}
}

func TestIdentityHasRole(t *testing.T) {
	id := Identity{UserID: "u-1", Role: " Admin "}
	if !id.HasRole("admin") {
		t.Fatalf("expected role match ignoring case and spaces")
	}
	if id.HasRole("") || (Identity{}).HasRole("admin") {
		t.Fatalf("empty roles must never match")
	}
}
