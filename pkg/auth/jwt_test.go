package auth

import (
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func TestViewerJWTRoundTrip(t *testing.T) {
	token, err := GenerateViewerJWT("user-1", "alice", "https://cdn.example/alice.png", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateViewerJWT(token, testSecret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Nickname != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestViewerJWTWrongSecret(t *testing.T) {
	token, err := GenerateViewerJWT("user-1", "alice", "", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateViewerJWT(token, []byte("other-secret")); err != ErrInvalidJWT {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
}

func TestViewerJWTExpired(t *testing.T) {
	token, err := GenerateViewerJWT("user-1", "alice", "", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateViewerJWT(token, testSecret); err != ErrExpiredJWT {
		t.Fatalf("expected ErrExpiredJWT, got %v", err)
	}
}

func TestViewerJWTGarbage(t *testing.T) {
	if _, err := ValidateViewerJWT("not-a-token", testSecret); err != ErrInvalidJWT {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
}

func TestValidateServiceToken(t *testing.T) {
	if err := ValidateServiceToken("tok", "tok"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := ValidateServiceToken("tok", "other"); err == nil {
		t.Fatal("expected mismatch error")
	}
	if err := ValidateServiceToken("", ""); err == nil {
		t.Fatal("empty expected token must never authorize")
	}
}
