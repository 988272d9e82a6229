package auth

import (
	"context"
	"testing"
	"time"

	"cutnpaste/api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueProducesFixedLengthDigits(t *testing.T) {
	m := NewCodeManager(store.NewMemory())
	ctx := context.Background()

	for range 20 {
		code, err := m.Issue(ctx, "bob@x.com")
		require.NoError(t, err)
		require.Len(t, code, CodeLength)

		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q has non-digit %q", code, r)
		}
	}
}

func TestIssueOverwritesPreviousCode(t *testing.T) {
	s := store.NewMemory()
	m := NewCodeManager(s)
	ctx := context.Background()

	first, err := m.Issue(ctx, "bob@x.com")
	require.NoError(t, err)

	second, err := m.Issue(ctx, "bob@x.com")
	require.NoError(t, err)

	// The first code is dead regardless of whether the random draw
	// happened to repeat.
	if first != second {
		assert.ErrorIs(t, m.Validate(ctx, "bob@x.com", first), ErrInvalidCode)
	}

	assert.NoError(t, m.Validate(ctx, "bob@x.com", second))
}

func TestValidateOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		m := NewCodeManager(store.NewMemory())
		assert.ErrorIs(t, m.Validate(ctx, "nobody@x.com", "123456"), ErrNotFound)
	})

	t.Run("wrong code", func(t *testing.T) {
		m := NewCodeManager(store.NewMemory())
		code, err := m.Issue(ctx, "bob@x.com")
		require.NoError(t, err)

		wrong := flipDigit(code)
		assert.ErrorIs(t, m.Validate(ctx, "bob@x.com", wrong), ErrInvalidCode)

		// The failed attempt doesn't consume the code.
		assert.NoError(t, m.Validate(ctx, "bob@x.com", code))
	})

	t.Run("expired code", func(t *testing.T) {
		m := NewCodeManager(store.NewMemory())

		issued := time.Now()
		m.Now = func() time.Time { return issued }

		code, err := m.Issue(ctx, "bob@x.com")
		require.NoError(t, err)

		m.Now = func() time.Time { return issued.Add(CodeTTL + time.Second) }
		assert.ErrorIs(t, m.Validate(ctx, "bob@x.com", code), ErrExpiredCode)
	})

	t.Run("boundary is strict", func(t *testing.T) {
		m := NewCodeManager(store.NewMemory())

		issued := time.Now()
		m.Now = func() time.Time { return issued }

		code, err := m.Issue(ctx, "bob@x.com")
		require.NoError(t, err)

		// Exactly at expiry still passes, only now > expiry fails.
		m.Now = func() time.Time { return issued.Add(CodeTTL) }
		assert.NoError(t, m.Validate(ctx, "bob@x.com", code))
	})
}

// Requirement: a code is single use, replaying it fails.
func TestValidateConsumesCode(t *testing.T) {
	m := NewCodeManager(store.NewMemory())
	ctx := context.Background()

	code, err := m.Issue(ctx, "bob@x.com")
	require.NoError(t, err)

	require.NoError(t, m.Validate(ctx, "bob@x.com", code))
	assert.ErrorIs(t, m.Validate(ctx, "bob@x.com", code), ErrNotFound)
}

func flipDigit(code string) string {
	b := []byte(code)
	b[0] = '0' + (b[0]-'0'+1)%10
	return string(b)
}
