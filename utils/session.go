package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the fixed cookie the session token lives under.
const SessionCookieName = "auth-token"

// SessionManager issues, reads and clears the session cookie. Secure is only
// set in production so local development over plain HTTP keeps working.
type SessionManager struct {
	secret string
	secure bool
}

// NewSessionManager creates a SessionManager signing with the given secret.
func NewSessionManager(secret string, secure bool) *SessionManager {
	return &SessionManager{secret: secret, secure: secure}
}

// Set issues a token for the claims and stores it in the session cookie.
func (s *SessionManager) Set(c *gin.Context, claims Claims) error {
	token, err := GenerateToken(claims, s.secret, SessionTTL)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(SessionTTL.Seconds()), "/", "", s.secure, true)
	return nil
}

// Clear removes the session cookie.
func (s *SessionManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", s.secure, true)
}

// Get reads and verifies the session cookie. The raw token is returned
// alongside the claims so callers can consult the revocation list. A missing,
// malformed, tampered or expired cookie reads as no session.
func (s *SessionManager) Get(c *gin.Context) (*Claims, string, bool) {
	token, err := c.Cookie(SessionCookieName)
	if err != nil || token == "" {
		return nil, "", false
	}
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return nil, "", false
	}
	return claims, token, true
}
