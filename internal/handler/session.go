package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionHandler issues anonymous session tokens for the booking flow.
// A session token's subject is an opaque UUID; the reservation core
// uses it as the owner token of holds.  There are no accounts behind
// sessions: identity proper is an external collaborator.
type SessionHandler struct {
	Secret string        // HS256 signing secret
	TTL    time.Duration // session lifetime
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(secret string, ttl time.Duration) *SessionHandler {
	if secret == "" {
		panic("empty secret passed to NewSessionHandler")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionHandler{Secret: secret, TTL: ttl}
}

// CreateSession handles POST /v1/session.  It mints a fresh signed
// token and returns it with its expiry; clients send it back as a
// Bearer token on every hold operation.
func (h *SessionHandler) CreateSession(c echo.Context) error {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(h.TTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(h.Secret))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue session"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      signed,
		"expires_at": now.Add(h.TTL).Format(time.RFC3339),
	})
}

// getOwnerToken extracts the session subject placed in the context by
// the session middleware.  Handlers treat it as the opaque owner token
// of holds.
func getOwnerToken(c echo.Context) (string, error) {
	v := c.Get("session_id")
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New("no session in context")
	}
	return s, nil
}
