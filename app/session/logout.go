package session

import (
	"errors"
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/internal/auth"
	"cutnpaste/api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// Logout deletes the account's opaque sessions and clears cookies.
// Bearer tokens can't be revoked server-side; clearing the cookie is
// all that happens for those.
func Logout(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	credential, err := c.Cookie(middleware.SessionCookie)
	if err != nil || credential == "" {
		credential, _ = c.Cookie(middleware.AuthCookie)
	}

	if err := d.Auth.Logout(c.Request.Context(), credential); err != nil {
		if errors.Is(err, auth.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":   false,
				"detail":    "Service unavailable, try again later",
				"requestID": requestID,
			})
			return
		}
	}

	sslEnabled := viper.GetBool("host.ssl.enabled")

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", sslEnabled, true)
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", sslEnabled, true)
	c.SetCookie("logged_in", "", -1, "/", "", sslEnabled, false)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}
