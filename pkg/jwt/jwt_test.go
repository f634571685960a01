package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateValidate(t *testing.T) {
	m, err := NewManager(Config{Secret: "s3cret", Issuer: "snapgram"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, exp, err := m.Generate("u1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if d := time.Until(exp); d < 29*24*time.Hour || d > 31*24*time.Hour {
		t.Fatalf("default expiry = %v, want about 30 days", d)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateExpired(t *testing.T) {
	m, _ := NewManager(Config{Secret: "s3cret", Expiry: time.Hour})
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	token, _, err := m.Generate("u1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m.now = time.Now
	if _, err := m.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateForeignSecret(t *testing.T) {
	a, _ := NewManager(Config{Secret: "a"})
	b, _ := NewManager(Config{Secret: "b"})
	token, _, _ := a.Generate("u1", "alice")

	if _, err := b.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := b.Validate("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage err = %v", err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("err = %v, want ErrEmptySecret", err)
	}
}
