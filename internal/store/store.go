// Package store abstracts persistence so the same auth flows run
// against SQLite, Postgres or plain maps. The backend is picked by
// configuration, not by duplicating server entry points.
package store

import (
	"context"
	"errors"
	"time"

	"cutnpaste/api/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail surfaces the store-level uniqueness constraint
	// on account emails. Duplicate detection has to live in the store,
	// a check-then-insert in the caller races under concurrency.
	ErrDuplicateEmail = errors.New("email already registered")
)

type Store interface {
	AccountStore
	CodeStore
	SessionStore
}

// AccountStore operations are atomic at single-account granularity.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	FindAccountByID(ctx context.Context, id string) (*model.Account, error)
	InsertAccount(ctx context.Context, a *model.Account) error
	UpdateAccountFields(ctx context.Context, id string, fields map[string]any) error
}

// CodeStore keeps at most one live verification code per email.
// UpsertCode overwrites any pending code for the same address.
type CodeStore interface {
	UpsertCode(ctx context.Context, c *model.VerificationCode) error
	FindCode(ctx context.Context, email string) (*model.VerificationCode, error)
	DeleteCode(ctx context.Context, email string) error
	DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

type SessionStore interface {
	InsertSession(ctx context.Context, s *model.Session) error
	FindSessionByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteSessionsByAccount(ctx context.Context, accountID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
