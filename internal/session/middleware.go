package session

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// GetID retrieves the session id injected by Middleware.
func GetID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(sessionIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// WithID returns a context carrying sessionID.
func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Middleware resolves the session from its signed cookie, starting a new
// session when the cookie is missing, tampered with, or expired. The cookie
// is re-issued on every request so active sessions slide forward.
func Middleware(tokens *Tokens, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionID string
		if raw, err := c.Cookie(CookieName); err == nil {
			if id, err := tokens.Verify(raw); err == nil {
				sessionID = id
			} else {
				logger.Debug("discarding session cookie", zap.Error(err))
			}
		}

		token, id, err := tokens.Issue(sessionID)
		if err != nil {
			logger.Error("failed to issue session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, token, int(tokens.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)

		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Set(string(sessionIDKey), id)

		c.Next()
	}
}
