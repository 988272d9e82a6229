package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"cutnpaste/api/internal/auth"
	"cutnpaste/api/internal/model"

	"github.com/gin-gonic/gin"
)

// Cookie names shared with the handlers that set them.
const (
	SessionCookie = "session_token"
	AuthCookie    = "auth_token"
)

// CredentialResolver is implemented by the auth service.
type CredentialResolver interface {
	ResolveCredential(ctx context.Context, credential string) (*model.Account, error)
}

// NewAuthMiddleware resolves whichever credential the request carries:
// the opaque session cookie, the bearer cookie, or an Authorization
// header. The resolver decides which shape it is.
func NewAuthMiddleware(resolver CredentialResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		credential := extractCredential(c)
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"detail":    "No credentials provided",
				"requestID": requestID,
			})
			return
		}

		account, err := resolver.ResolveCredential(c.Request.Context(), credential)
		if err != nil {
			if errors.Is(err, auth.ErrUnavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"success":   false,
					"detail":    "Service unavailable, try again later",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"detail":    "Invalid or expired credentials",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", account.ID)
		c.Set("account", account)
		c.Set("credential", credential)
		c.Next()
	}
}

func extractCredential(c *gin.Context) string {
	if v, err := c.Cookie(SessionCookie); err == nil && v != "" {
		return v
	}

	if v, err := c.Cookie(AuthCookie); err == nil && v != "" {
		return v
	}

	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}

	return ""
}
