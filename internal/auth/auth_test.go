package auth

import (
	"testing"
	"time"

	"minerva-scheduler/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	user := models.UserContext{UID: "doc-42", Role: models.RoleDoctor}

	token, err := NewToken("secret", user, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	got, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != user {
		t.Fatalf("expected %+v, got %+v", user, got)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewToken("secret", models.UserContext{UID: "u1", Role: models.RolePatient}, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	if _, err := ParseToken("other", token); err == nil {
		t.Fatalf("expected signature error for wrong secret")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := NewToken("secret", models.UserContext{UID: "u1", Role: models.RolePatient}, -time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	if _, err := ParseToken("secret", token); err == nil {
		t.Fatalf("expected expiry error")
	}
}
