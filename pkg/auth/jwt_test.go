package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestSetupTokenRoundTrip(t *testing.T) {
	token, err := NewSetupToken("ada@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSetupToken failed: %v", err)
	}

	email, err := ParseSetupToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseSetupToken failed: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("expected ada@example.com, got %q", email)
	}
}

func TestSetupTokenWrongSecret(t *testing.T) {
	token, err := NewSetupToken("ada@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSetupToken failed: %v", err)
	}

	if _, err := ParseSetupToken(token, "other-secret"); err == nil {
		t.Error("expected signature verification to fail")
	}
}

func TestSetupTokenExpired(t *testing.T) {
	token, err := NewSetupToken("ada@example.com", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("NewSetupToken failed: %v", err)
	}

	if _, err := ParseSetupToken(token, testSecret); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestSetupTokenRejectsAdminScope(t *testing.T) {
	token, err := NewAdminToken("root@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken failed: %v", err)
	}

	if _, err := ParseSetupToken(token, testSecret); err == nil {
		t.Error("an admin token must not pass as a setup token")
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse("not.a.token", testSecret); err == nil {
		t.Error("expected parse error")
	}
}

func TestAdminTokenClaims(t *testing.T) {
	token, err := NewAdminToken("root@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken failed: %v", err)
	}

	claims, err := Parse(token, testSecret)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("expected admin role, got %q", claims.Role)
	}
	if claims.Email != "root@example.com" {
		t.Errorf("unexpected email %q", claims.Email)
	}
}
