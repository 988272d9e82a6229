// Package oauth talks to external identity providers. The orchestrator
// only sees the Provider interface and the Identity it returns.
package oauth

import (
	"context"
	"errors"
)

// ErrInvalidAssertion means the provider rejected the presented code or
// session identifier.
var ErrInvalidAssertion = errors.New("identity provider rejected the assertion")

// Identity is the external identity assertion after a successful
// exchange.
type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

type Provider interface {
	// AuthURL returns the provider page to redirect the user to.
	AuthURL(state string) string

	// Exchange trades the callback code for the user's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}
