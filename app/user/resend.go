package user

import (
	"net/http"

	"cutnpaste/api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type resendBody struct {
	Email string `json:"email"`
}

func UserResendVerification(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resendBody
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

	debugCode, err := d.Auth.ResendVerification(c.Request.Context(), data.Email)
	if err != nil {
		abortAuthError(c, err, requestID)
		return
	}

	body := gin.H{
		"success": true,
		"message": "Verification email sent",
	}

	if debugCode != "" {
		body["verification_code"] = debugCode
	}

	c.JSON(http.StatusOK, body)
}
