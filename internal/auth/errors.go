package auth

import "errors"

// Failure kinds surfaced by the orchestrator. Handlers map these to
// HTTP statuses; anything not in this list is an internal error that
// gets logged and reported as ErrUnavailable.
var (
	// ErrValidation wraps bad input shape: malformed email, short
	// password and the like.
	ErrValidation = errors.New("invalid input")

	// ErrConflict means the email is already registered.
	ErrConflict = errors.New("email already registered")

	// ErrInvalidCredentials merges "no such account", "wrong provider"
	// and "wrong password" into one outcome so callers can't enumerate
	// registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrVerificationRequired means the password matched but the email
	// hasn't been verified yet.
	ErrVerificationRequired = errors.New("email verification required")

	ErrNotFound    = errors.New("not found")
	ErrInvalidCode = errors.New("invalid verification code")
	ErrExpiredCode = errors.New("verification code expired")

	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrResendCooldown rejects resend requests inside the per-email
	// cooldown window.
	ErrResendCooldown = errors.New("verification email was sent recently")

	// ErrUnavailable covers transient store/provider failures after the
	// single retry, distinct from every validation outcome so callers
	// can tell "rejected" from "try again later".
	ErrUnavailable = errors.New("service unavailable")
)
