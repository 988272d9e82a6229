package user

import (
	"errors"
	"net/http"

	"cutnpaste/api/internal/auth"

	"github.com/gin-gonic/gin"
)

// abortAuthError maps orchestrator outcomes to stable statuses and
// detail strings. Internal causes are logged by the service, never
// echoed to the client.
func abortAuthError(c *gin.Context, err error, requestID string) {
	status := http.StatusInternalServerError
	detail := "Internal server error"

	switch {
	case errors.Is(err, auth.ErrValidation):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, auth.ErrConflict):
		status = http.StatusConflict
		detail = "This email is already registered. Please login or use a different email"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		detail = "Invalid credentials"
	case errors.Is(err, auth.ErrVerificationRequired):
		status = http.StatusForbidden
		detail = "Please verify your email before logging in"
	case errors.Is(err, auth.ErrNotFound):
		status = http.StatusNotFound
		detail = "Not found"
	case errors.Is(err, auth.ErrInvalidCode):
		status = http.StatusUnauthorized
		detail = "Invalid verification code"
	case errors.Is(err, auth.ErrExpiredCode):
		status = http.StatusGone
		detail = "Verification code has expired"
	case errors.Is(err, auth.ErrResendCooldown):
		status = http.StatusTooManyRequests
		detail = "A verification email was sent recently, try again later"
	case errors.Is(err, auth.ErrUnauthenticated):
		status = http.StatusUnauthorized
		detail = "Invalid or expired credentials"
	case errors.Is(err, auth.ErrUnavailable):
		status = http.StatusServiceUnavailable
		detail = "Service unavailable, try again later"
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"detail":    detail,
		"requestID": requestID,
	})
}
