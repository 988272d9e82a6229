package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"cutnpaste/api/internal/oauth"
	"cutnpaste/api/internal/store"
	"cutnpaste/api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingDispatcher captures queued mail instead of sending it.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMail
}

func (d *recordingDispatcher) Enqueue(to, subject, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentMail{To: to, Subject: subject, Body: body})
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// stubProvider hands back a canned identity, or rejects everything.
type stubProvider struct {
	identity *oauth.Identity
	reject   bool
}

func (p *stubProvider) AuthURL(state string) string { return "https://provider.test/auth?state=" + state }

func (p *stubProvider) Exchange(_ context.Context, _ string) (*oauth.Identity, error) {
	if p.reject || p.identity == nil {
		return nil, oauth.ErrInvalidAssertion
	}

	return p.identity, nil
}

type testEnv struct {
	svc      *Service
	store    *store.MemoryStore
	mail     *recordingDispatcher
	provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemory()
	mail := &recordingDispatcher{}
	provider := &stubProvider{
		identity: &oauth.Identity{
			ExternalID:  "g-12345",
			Email:       "oauth.bob@x.com",
			DisplayName: "OAuth Bob",
			AvatarURL:   "https://provider.test/avatar.png",
		},
	}

	// Cheap argon2 parameters keep the concurrent tests light.
	hasher := &security.Hasher{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	svc := NewService(
		st,
		hasher,
		security.NewTokenIssuer("test-secret"),
		NewCodeManager(st),
		mail,
		nil,
		provider,
	)

	return &testEnv{svc: svc, store: st, mail: mail, provider: provider}
}

func (e *testEnv) register(t *testing.T, email, password string) *RegisterResult {
	t.Helper()

	res, err := e.svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Bob",
		LastName:  "Builder",
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) storedCode(t *testing.T, email string) string {
	t.Helper()

	c, err := e.store.FindCode(context.Background(), email)
	require.NoError(t, err)
	return c.Code
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unverified account and queues code mail", func(t *testing.T) {
		e := newTestEnv(t)

		res := e.register(t, "bob@x.com", "password123")
		assert.NotEmpty(t, res.UserID)
		assert.True(t, res.VerificationRequired)
		assert.Empty(t, res.DebugCode)

		account, err := e.store.FindAccountByEmail(ctx, "bob@x.com")
		require.NoError(t, err)
		assert.False(t, account.Verified)
		assert.Equal(t, "password", account.Provider)
		assert.Equal(t, "free", account.Tier)
		assert.Equal(t, "Bob Builder", account.DisplayName)
		assert.NotEmpty(t, account.PasswordHash)
		assert.NotContains(t, account.PasswordHash, "password123")

		code := e.storedCode(t, "bob@x.com")
		assert.Len(t, code, CodeLength)
		assert.Equal(t, 1, e.mail.count())
	})

	t.Run("rejects short password", func(t *testing.T) {
		e := newTestEnv(t)

		_, err := e.svc.Register(ctx, RegisterInput{Email: "bob@x.com", Password: "short"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		e := newTestEnv(t)

		_, err := e.svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password123"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")

		_, err := e.svc.Register(ctx, RegisterInput{Email: "bob@x.com", Password: "different456"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("normalizes email case", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "  Bob@X.com ", "password123")

		_, err := e.store.FindAccountByEmail(ctx, "bob@x.com")
		assert.NoError(t, err)

		_, err = e.svc.Register(ctx, RegisterInput{Email: "BOB@x.COM", Password: "password123"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("exactly one concurrent registration wins", func(t *testing.T) {
		e := newTestEnv(t)

		const attempts = 20

		var wg sync.WaitGroup
		errs := make([]error, attempts)

		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = e.svc.Register(ctx, RegisterInput{
					Email:    "race@x.com",
					Password: "password123",
				})
			}(i)
		}
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				assert.ErrorIs(t, err, ErrConflict)
			}
		}

		assert.Equal(t, 1, won)
	})

	t.Run("expose flag returns the code", func(t *testing.T) {
		e := newTestEnv(t)
		e.svc.ExposeCodes = true

		res := e.register(t, "bob@x.com", "password123")
		assert.Equal(t, e.storedCode(t, "bob@x.com"), res.DebugCode)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("flips account and issues first token", func(t *testing.T) {
		e := newTestEnv(t)
		res := e.register(t, "bob@x.com", "password123")
		code := e.storedCode(t, "bob@x.com")

		token, err := e.svc.VerifyEmail(ctx, "bob@x.com", code)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		accountID, err := security.NewTokenIssuer("test-secret").DecodeBearer(token)
		require.NoError(t, err)
		assert.Equal(t, res.UserID, accountID)

		account, err := e.store.FindAccountByEmail(ctx, "bob@x.com")
		require.NoError(t, err)
		assert.True(t, account.Verified)
	})

	t.Run("wrong code leaves state untouched", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")
		code := e.storedCode(t, "bob@x.com")

		_, err := e.svc.VerifyEmail(ctx, "bob@x.com", flipDigit(code))
		assert.ErrorIs(t, err, ErrInvalidCode)

		account, err := e.store.FindAccountByEmail(ctx, "bob@x.com")
		require.NoError(t, err)
		assert.False(t, account.Verified)
	})

	t.Run("replay fails after success", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")
		code := e.storedCode(t, "bob@x.com")

		_, err := e.svc.VerifyEmail(ctx, "bob@x.com", code)
		require.NoError(t, err)

		_, err = e.svc.VerifyEmail(ctx, "bob@x.com", code)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired code surfaces as expired", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")
		code := e.storedCode(t, "bob@x.com")

		issued := time.Now()
		e.svc.codes.Now = func() time.Time { return issued.Add(CodeTTL + time.Minute) }

		_, err := e.svc.VerifyEmail(ctx, "bob@x.com", code)
		assert.ErrorIs(t, err, ErrExpiredCode)
	})

	t.Run("unknown email", func(t *testing.T) {
		e := newTestEnv(t)

		_, err := e.svc.VerifyEmail(ctx, "nobody@x.com", "123456")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("requires verification first", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")

		_, _, err := e.svc.Login(ctx, "bob@x.com", "password123")
		assert.ErrorIs(t, err, ErrVerificationRequired)
	})

	t.Run("succeeds after verification", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")

		_, err := e.svc.VerifyEmail(ctx, "bob@x.com", e.storedCode(t, "bob@x.com"))
		require.NoError(t, err)

		profile, token, err := e.svc.Login(ctx, "bob@x.com", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "bob@x.com", profile.Email)
		assert.True(t, profile.EmailVerified)
		assert.False(t, profile.IsPremium)
	})

	// Requirement: wrong password and unknown account are
	// indistinguishable to the caller.
	t.Run("failure reasons are merged", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")

		_, _, errWrongPass := e.svc.Login(ctx, "bob@x.com", "wrongpass")
		_, _, errNoUser := e.svc.Login(ctx, "nouser@x.com", "x")

		assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, errNoUser, ErrInvalidCredentials)
		assert.Equal(t, errWrongPass, errNoUser)
	})

	t.Run("oauth accounts cannot password-login", func(t *testing.T) {
		e := newTestEnv(t)

		_, _, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)

		_, _, err = e.svc.Login(ctx, "oauth.bob@x.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("reissues and invalidates the old code", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")
		old := e.storedCode(t, "bob@x.com")

		_, err := e.svc.ResendVerification(ctx, "bob@x.com")
		require.NoError(t, err)

		fresh := e.storedCode(t, "bob@x.com")
		assert.Equal(t, 2, e.mail.count())

		if old != fresh {
			_, err := e.svc.VerifyEmail(ctx, "bob@x.com", old)
			assert.ErrorIs(t, err, ErrInvalidCode)
		}

		_, err = e.svc.VerifyEmail(ctx, "bob@x.com", fresh)
		assert.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		e := newTestEnv(t)

		_, err := e.svc.ResendVerification(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("already verified account", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")

		_, err := e.svc.VerifyEmail(ctx, "bob@x.com", e.storedCode(t, "bob@x.com"))
		require.NoError(t, err)

		_, err = e.svc.ResendVerification(ctx, "bob@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOAuthExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("first sign-in creates a pre-verified account", func(t *testing.T) {
		e := newTestEnv(t)

		profile, token, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		assert.Equal(t, "oauth_g-12345", profile.ID)
		assert.True(t, profile.EmailVerified)

		account, err := e.store.FindAccountByID(ctx, "oauth_g-12345")
		require.NoError(t, err)
		assert.Equal(t, "oauth", account.Provider)
		assert.Empty(t, account.PasswordHash)

		// No verification code is ever issued on this path.
		_, err = e.store.FindCode(ctx, "oauth.bob@x.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	// Requirement: the same external identity upserts, never duplicates.
	t.Run("repeat sign-in reuses the account", func(t *testing.T) {
		e := newTestEnv(t)

		first, token1, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)

		e.provider.identity.DisplayName = "Renamed Bob"

		second, token2, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Renamed Bob", second.DisplayName)
		assert.NotEqual(t, token1, token2)

		// Both sessions stay valid until logout.
		_, err = e.svc.ResolveCredential(ctx, token1)
		assert.NoError(t, err)
		_, err = e.svc.ResolveCredential(ctx, token2)
		assert.NoError(t, err)
	})

	t.Run("does not merge with a password account on the same email", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "oauth.bob@x.com", "password123")

		_, _, err := e.svc.OAuthExchange(ctx, "assertion")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("rejected assertion", func(t *testing.T) {
		e := newTestEnv(t)
		e.provider.reject = true

		_, _, err := e.svc.OAuthExchange(ctx, "assertion")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestResolveCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("opaque session resolves first", func(t *testing.T) {
		e := newTestEnv(t)

		profile, token, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)

		account, err := e.svc.ResolveCredential(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, account.ID)
	})

	t.Run("bearer token resolves as fallback", func(t *testing.T) {
		e := newTestEnv(t)
		res := e.register(t, "bob@x.com", "password123")

		token, err := e.svc.VerifyEmail(ctx, "bob@x.com", e.storedCode(t, "bob@x.com"))
		require.NoError(t, err)

		account, err := e.svc.ResolveCredential(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, res.UserID, account.ID)
	})

	t.Run("expired session fails while the row still exists", func(t *testing.T) {
		e := newTestEnv(t)

		_, token, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)

		e.svc.Now = func() time.Time { return time.Now().Add(SessionTTL + time.Hour) }

		_, err = e.svc.ResolveCredential(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthenticated)

		_, err = e.store.FindSessionByToken(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("garbage credentials", func(t *testing.T) {
		e := newTestEnv(t)

		for _, cred := range []string{"", "garbage", "a.b.c"} {
			_, err := e.svc.ResolveCredential(ctx, cred)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every session of the account", func(t *testing.T) {
		e := newTestEnv(t)

		_, token1, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)
		_, token2, err := e.svc.OAuthExchange(ctx, "assertion")
		require.NoError(t, err)

		require.NoError(t, e.svc.Logout(ctx, token1))

		_, err = e.svc.ResolveCredential(ctx, token1)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = e.svc.ResolveCredential(ctx, token2)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("bearer tokens survive logout", func(t *testing.T) {
		e := newTestEnv(t)
		e.register(t, "bob@x.com", "password123")

		token, err := e.svc.VerifyEmail(ctx, "bob@x.com", e.storedCode(t, "bob@x.com"))
		require.NoError(t, err)

		require.NoError(t, e.svc.Logout(ctx, token))

		// Accepted limitation: no denylist for self-describing tokens.
		_, err = e.svc.ResolveCredential(ctx, token)
		assert.NoError(t, err)
	})
}
