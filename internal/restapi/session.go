package restapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionExpired is returned before any request is sent when the
// configured bearer token has already expired.
var ErrSessionExpired = errors.New("restapi: session token expired")

// Session carries the optional bearer token for the API. The client cannot
// verify the signature (the secret lives server-side); it only reads the
// claims to refuse requests that would bounce anyway.
type Session struct {
	Token string

	// nowFn is overridable for tests.
	nowFn func() time.Time
}

// NewSession wraps a raw bearer token. An empty token means an anonymous
// session, which the API accepts.
func NewSession(token string) *Session {
	return &Session{Token: token, nowFn: time.Now}
}

// Check gates a request on the token's expiry claim. Tokens without an exp
// claim pass; malformed tokens are rejected outright.
func (s *Session) Check() error {
	if s.Token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return fmt.Errorf("restapi: bad session token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("restapi: bad session token: %w", err)
	}
	if exp != nil && exp.Before(s.nowFn()) {
		return ErrSessionExpired
	}
	return nil
}
