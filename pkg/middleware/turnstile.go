package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewTurnstileMiddleware guards public endpoints against bots. Secret
// comes from configuration; when disabled the middleware is a no-op.
func NewTurnstileMiddleware(enabled bool, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		token := c.Request.Header.Get("TurnstileToken")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"detail":  "Missing or invalid turnstile token",
			})
			return
		}

		payload := gin.H{
			"secret":   secret,
			"response": token,
			"remoteip": c.ClientIP(),
		}

		jsonBody, _ := json.Marshal(payload)
		resp, err := http.Post(siteverifyURL, "application/json", bytes.NewReader(jsonBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"detail":  "Unauthorized",
			})
			return
		}

		respBody, _ := io.ReadAll(resp.Body)
		defer resp.Body.Close()

		var res turnstileResponse
		if err := json.Unmarshal(respBody, &res); err != nil || !res.Success {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"detail":  "Unauthorized",
			})
			return
		}

		c.Next()
	}
}
