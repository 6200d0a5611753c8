package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, exp, err := tm.GenerateToken("user-1", domain.NewRoleSet(domain.RoleTechnician))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "USER" || claims.Roles[1] != "TECHNICIAN" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).GenerateToken("u", domain.NewRoleSet())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("two", time.Hour).ParseToken(token); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken("u", domain.NewRoleSet())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short", bcrypt.MinCost); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := HashPassword(strings.Repeat("x", MaxPasswordLength+1), bcrypt.MinCost); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "correct horse"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong horse"); err == nil {
		t.Fatal("expected mismatch")
	}
}
