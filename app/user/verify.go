package user

import (
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type verifyBody struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

func UserVerify(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Email == "" || data.VerificationCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Email and verification code are required",
			"requestID": requestID,
		})
		return
	}

	token, err := d.Auth.VerifyEmail(c.Request.Context(), data.Email, data.VerificationCode)
	if err != nil {
		abortAuthError(c, err, requestID)
		return
	}

	sslEnabled := viper.GetBool("host.ssl.enabled")
	c.SetCookie(middleware.AuthCookie, token, 60*60*24*7, "/", "", sslEnabled, true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully! You can now log in",
		"token":   token,
	})
}
