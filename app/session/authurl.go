// Package session holds the OAuth session endpoints: redirect URL
// generation, assertion exchange and logout.
package session

import (
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const stateCookie = "oauthstate"

// AuthURL hands the client the provider's consent page URL together
// with a state cookie the callback must echo.
func AuthURL(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	state, err := util.GenerateToken(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"detail":    "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate oauth state", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	sslEnabled := viper.GetBool("host.ssl.enabled")
	c.SetCookie(stateCookie, state, 600, "/", "", sslEnabled, true)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"auth_url": d.OAuth.AuthURL(state),
	})
}
