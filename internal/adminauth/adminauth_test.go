package adminauth

import (
	"context"
	"testing"
	"time"
)

func testService() *Service {
	return New(Config{
		Secret:        "test-secret",
		Issuer:        "forgeq-dispatcher",
		Audience:      "forgeq-dispatcher-admin",
		AccessTTL:     time.Hour,
		AdminUsername: "admin",
		AdminPassword: "s3cret",
	})
}

func TestLoginAndVerifyRoundTrip(t *testing.T) {
	s := testService()
	token, user, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user != "admin" {
		t.Fatalf("unexpected user: %q", user)
	}
	subject, err := s.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != "admin" {
		t.Fatalf("unexpected subject: %q", subject)
	}
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	s := testService()
	if _, _, err := s.Login("admin", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if _, _, err := s.Login("nobody", "s3cret"); err == nil {
		t.Fatal("expected error for wrong username")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	s := testService()
	if _, err := s.VerifyToken(context.Background(), "not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := s.VerifyToken(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	s := New(Config{
		Secret:        "test-secret",
		Issuer:        "forgeq-dispatcher",
		AccessTTL:     -time.Minute,
		AdminUsername: "admin",
		AdminPassword: "s3cret",
	})
	token, _, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := s.VerifyToken(context.Background(), token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	s := testService()
	token, _, err := s.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	other := testService()
	other.cfg.Secret = "different-secret"
	if _, err := other.VerifyToken(context.Background(), token); err == nil {
		t.Fatal("expected error for mismatched signing secret")
	}
}
