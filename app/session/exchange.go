package session

import (
	"errors"
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/internal/auth"
	"cutnpaste/api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type exchangeBody struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// Exchange trades the provider assertion for an upserted account plus
// an opaque session cookie. Passwords never enter this path.
func Exchange(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data exchangeBody
	if err := c.ShouldBind(&data); err != nil || data.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "No session ID provided",
			"requestID": requestID,
		})
		return
	}

	// The state echo stops a login-CSRF swap of the assertion. Only
	// enforced when the cookie is present so that native clients
	// without cookie jars can still exchange.
	if state, err := c.Cookie(stateCookie); err == nil && state != data.State {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Invalid oauth state",
			"requestID": requestID,
		})
		return
	}

	profile, token, err := d.Auth.OAuthExchange(c.Request.Context(), data.SessionID)
	if err != nil {
		status := http.StatusInternalServerError
		detail := "Internal server error"

		switch {
		case errors.Is(err, auth.ErrUnauthenticated):
			status = http.StatusUnauthorized
			detail = "Identity provider rejected the session"
		case errors.Is(err, auth.ErrConflict):
			status = http.StatusConflict
			detail = "This email is already registered with a password account"
		case errors.Is(err, auth.ErrUnavailable):
			status = http.StatusServiceUnavailable
			detail = "Service unavailable, try again later"
		}

		c.AbortWithStatusJSON(status, gin.H{
			"success":   false,
			"detail":    detail,
			"requestID": requestID,
		})
		return
	}

	sslEnabled := viper.GetBool("host.ssl.enabled")

	c.SetCookie(stateCookie, "", -1, "/", "", sslEnabled, true)
	c.SetCookie(middleware.SessionCookie, token, int(auth.SessionTTL.Seconds()), "/", "", sslEnabled, true)

	zap.L().Debug("OAuth session created", zap.String("userID", profile.ID), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    profile,
	})
}
