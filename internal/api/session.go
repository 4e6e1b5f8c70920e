package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Session carries everything request-building needs. It is always passed
// in explicitly; there is no process-global session state.
type Session struct {
	BaseURL  string
	Token    string
	Operator string
	Timeout  time.Duration
}

// Authenticated reports whether the session carries a bearer token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// TokenExpiry decodes the session JWT without verifying the signature and
// returns its expiry. Verification belongs to the server; the console only
// uses this to warn before a token lapses.
func (s Session) TokenExpiry() (time.Time, error) {
	if s.Token == "" {
		return time.Time{}, fmt.Errorf("no session token")
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode session token: %w", err)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("session token has no expiry")
	}
	return time.Unix(int64(exp), 0), nil
}
