package user

import (
	"net/http"

	"cutnpaste/api/internal"
	"cutnpaste/api/internal/auth"
	"cutnpaste/api/internal/model"

	"github.com/gin-gonic/gin"
)

// UserMe returns the profile projection of whoever the auth middleware
// resolved. Works for both credential shapes.
func UserMe(c *gin.Context, _ *internal.Deps) {
	account := c.MustGet("account").(*model.Account)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    auth.NewProfile(account),
	})
}
