package user

import (
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Email field can't be empty",
			"requestID": requestID,
		})
		return
	}

	if data.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Password field can't be empty",
			"requestID": requestID,
		})
		return
	}

	profile, token, err := d.Auth.Login(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		abortAuthError(c, err, requestID)
		return
	}

	sslEnabled := viper.GetBool("host.ssl.enabled")

	c.SetCookie(middleware.AuthCookie, token, 60*60*24*7, "/", "", sslEnabled, true)
	c.SetCookie("logged_in", "1", 60*60*24*7, "/", "", sslEnabled, false)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    profile,
	})
}
