// Package root holds the unauthenticated service endpoints.
package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const apiVersion = "3.0.0"

// Heartbeat answers HEAD probes from uptime checks.
func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Info is the static root payload.
func Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "CutnPaste API",
		"version": apiVersion,
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "healthy",
	})
}

// Validate runs behind the auth middleware; reaching it means the
// presented credential resolved.
func Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user_id": c.MustGet("userID").(string),
	})
}
