package user

import (
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"detail":    "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	res, err := d.Auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:       data.Email,
		Password:    data.Password,
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		DisplayName: data.DisplayName,
	})
	if err != nil {
		abortAuthError(c, err, requestID)
		return
	}

	body := gin.H{
		"success":               true,
		"message":               "Registration successful! Check your inbox for the verification code",
		"user_id":               res.UserID,
		"verification_required": res.VerificationRequired,
	}

	// Only populated when the expose-codes debug flag is on.
	if res.DebugCode != "" {
		body["verification_code"] = res.DebugCode
	}

	c.JSON(http.StatusOK, body)
}
