package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"time"

	"cutnpaste/api/internal/model"
	"cutnpaste/api/internal/store"
)

const (
	// CodeLength is the number of digits in a verification code. Six
	// digits keeps codes human-typeable from a mail client.
	CodeLength = 6

	// CodeTTL bounds how long a code stays redeemable.
	CodeTTL = time.Hour
)

// CodeManager issues and validates the one-time email verification
// codes. At most one code is live per email, reissuing overwrites.
type CodeManager struct {
	store store.CodeStore

	// Now is swapped out in tests to simulate the clock.
	Now func() time.Time
}

func NewCodeManager(s store.CodeStore) *CodeManager {
	return &CodeManager{
		store: s,
		Now:   time.Now,
	}
}

// Issue generates a fresh code for email and stores it, invalidating
// any previous unconsumed code for the same address.
func (m *CodeManager) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode(CodeLength)
	if err != nil {
		return "", err
	}

	now := m.Now()

	err = m.store.UpsertCode(ctx, &model.VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(CodeTTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}

	return code, nil
}

// Validate checks the submitted code against the stored one. On success
// the record is deleted in the same logical operation, so a replay of
// the identical code comes back ErrNotFound.
func (m *CodeManager) Validate(ctx context.Context, email, submitted string) error {
	rec, err := m.store.FindCode(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}

		return err
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(submitted)) != 1 {
		return ErrInvalidCode
	}

	if m.Now().After(rec.ExpiresAt) {
		return ErrExpiredCode
	}

	return m.store.DeleteCode(ctx, email)
}

// generateCode draws each digit uniformly from crypto/rand. A guessable
// code would be worth guessing for its whole hour of validity.
func generateCode(n int) (string, error) {
	digits := make([]byte, n)

	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}

		digits[i] = byte('0' + d.Int64())
	}

	return string(digits), nil
}
