package internal

import (
	"cutnpaste/api/internal/auth"
	"cutnpaste/api/internal/oauth"
	"cutnpaste/api/internal/service"
	"cutnpaste/api/internal/store"
)

// Deps carries everything the handlers need. Built once at startup,
// and from fakes in tests.
type Deps struct {
	Store store.Store
	Auth  *auth.Service
	OAuth oauth.Provider
	Mail  *service.MailQueue
}
