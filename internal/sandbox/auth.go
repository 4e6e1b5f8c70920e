package sandbox

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
)

const sessionTTL = 24 * time.Hour

func (s *Server) issueSessionToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *Server) parseToken(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// bearerAuth rejects requests without a valid session token.
func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return fail(c, http.StatusUnauthorized, "NO_SESSION", "missing session token")
		}
		claims, err := s.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return fail(c, http.StatusUnauthorized, "BAD_SESSION", "invalid or expired session")
		}
		if sub, _ := claims["sub"].(string); sub != "" {
			c.Set("operator", sub)
		}
		return next(c)
	}
}

func (s *Server) login(c echo.Context) error {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}

	var opr domain.SysOpr
	if err := s.db.Where("username = ?", payload.Username).First(&opr).Error; err != nil {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "invalid username or password")
	}
	// Sandbox-only plain comparison; the production backend hashes.
	if opr.Password != payload.Password || opr.Status != "enabled" {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "invalid username or password")
	}

	token, err := s.issueSessionToken(opr.Username)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_FAILED", "failed to issue session token")
	}
	s.db.Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Update("last_login", time.Now())

	return ok(c, "login successful", map[string]string{
		"token":    token,
		"operator": opr.Username,
	})
}

// impersonateIssue mints a one-time token an operator can hand to a
// support session. The token is consumed on first exchange.
func (s *Server) impersonateIssue(c echo.Context) error {
	operator, _ := c.Get("operator").(string)
	oneTime := s.node.Generate().Base58()

	s.mu.Lock()
	s.onetime[oneTime] = operator
	s.mu.Unlock()

	return ok(c, "impersonation token issued", map[string]string{"token": oneTime})
}

// impersonateExchange swaps a one-time token for a session token.
func (s *Server) impersonateExchange(c echo.Context) error {
	var payload struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}

	s.mu.Lock()
	operator, found := s.onetime[payload.Token]
	if found {
		delete(s.onetime, payload.Token)
	}
	s.mu.Unlock()

	if !found {
		return fail(c, http.StatusUnauthorized, "BAD_TOKEN", "impersonation token invalid or already used")
	}

	token, err := s.issueSessionToken(operator)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_FAILED", "failed to issue session token")
	}
	return ok(c, "impersonation successful", map[string]string{
		"token":    token,
		"operator": operator,
	})
}
