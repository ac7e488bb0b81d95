package restapi

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return token
}

func TestSessionCheckEmptyToken(t *testing.T) {
	if err := NewSession("").Check(); err != nil {
		t.Fatalf("anonymous session rejected: %v", err)
	}
}

func TestSessionCheckValidToken(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := NewSession(signedToken(t, jwt.MapClaims{
		"sub": "alice",
		"exp": now.Add(time.Hour).Unix(),
	}))
	s.nowFn = func() time.Time { return now }

	if err := s.Check(); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestSessionCheckExpiredToken(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := NewSession(signedToken(t, jwt.MapClaims{
		"sub": "alice",
		"exp": now.Add(-time.Minute).Unix(),
	}))
	s.nowFn = func() time.Time { return now }

	if err := s.Check(); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Check = %v, want ErrSessionExpired", err)
	}
}

func TestSessionCheckTokenWithoutExpiry(t *testing.T) {
	s := NewSession(signedToken(t, jwt.MapClaims{"sub": "alice"}))
	if err := s.Check(); err != nil {
		t.Fatalf("token without exp rejected: %v", err)
	}
}

func TestSessionCheckMalformedToken(t *testing.T) {
	if err := NewSession("not.a.jwt").Check(); err == nil {
		t.Fatal("malformed token accepted")
	}
}
