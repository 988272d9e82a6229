// Package auth implements the account lifecycle: register, verify,
// login, authenticated requests and logout, plus the parallel OAuth
// session flow. Everything stateful goes through the store; everything
// slow (mail) goes through the dispatcher.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cutnpaste/api/internal/model"
	"cutnpaste/api/internal/oauth"
	"cutnpaste/api/internal/service"
	"cutnpaste/api/internal/store"
	"cutnpaste/api/pkg/security"
	"cutnpaste/api/pkg/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength  = 16

	// SessionTTL is the lifetime of an opaque OAuth session.
	SessionTTL = time.Hour * 24 * 7

	retryBackoff = time.Millisecond * 150
)

type Service struct {
	store    store.Store
	hasher   *security.Hasher
	tokens   *security.TokenIssuer
	codes    *CodeManager
	mail     service.Dispatcher
	resend   *service.ResendLimiter
	provider oauth.Provider

	// ExposeCodes returns verification codes in API responses. Debug
	// aid for local setups without a mail relay, must never be on in
	// production. Guarded by config and logged loudly at startup.
	ExposeCodes bool

	// Now is swapped out in tests to simulate the clock.
	Now func() time.Time
}

func NewService(
	s store.Store,
	hasher *security.Hasher,
	tokens *security.TokenIssuer,
	codes *CodeManager,
	mail service.Dispatcher,
	resend *service.ResendLimiter,
	provider oauth.Provider,
) *Service {
	return &Service{
		store:    s,
		hasher:   hasher,
		tokens:   tokens,
		codes:    codes,
		mail:     mail,
		resend:   resend,
		provider: provider,
		Now:      time.Now,
	}
}

// Profile is the public projection of an account. It never carries the
// password hash.
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Provider      string `json:"provider"`
	IsPremium     bool   `json:"is_premium"`
	EmailVerified bool   `json:"email_verified"`
}

func NewProfile(a *model.Account) *Profile {
	return &Profile{
		ID:            a.ID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		Provider:      a.Provider,
		IsPremium:     a.Tier != model.TierFree,
		EmailVerified: a.Verified,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DisplayName string
}

type RegisterResult struct {
	UserID               string
	VerificationRequired bool

	// DebugCode is only populated when ExposeCodes is on.
	DebugCode string
}

// Register creates an unverified password account, issues a
// verification code and queues the mail. No token is returned here,
// that only happens after verification.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := NormalizeEmail(in.Email)

	if err := validators.EmailValidator(email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	if err := validators.PasswordValidator(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	_, err := s.store.FindAccountByEmail(ctx, email)
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, s.unavailable("check existing account", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.unavailable("hash password", err)
	}

	userID, err := gonanoid.Generate(idCharset, idLength)
	if err != nil {
		return nil, s.unavailable("generate user ID", err)
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(in.FirstName + " " + in.LastName)
	}

	account := &model.Account{
		ID:           userID,
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DisplayName:  displayName,
		Provider:     model.ProviderPassword,
		Tier:         model.TierFree,
		CreatedAt:    s.Now(),
	}

	err = s.retry(func() error { return s.store.InsertAccount(ctx, account) })
	if err != nil {
		// The store-level unique index decides the winner between two
		// concurrent registrations, the pre-check above only exists for
		// the common sequential case.
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrConflict
		}

		return nil, s.unavailable("create account", err)
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return nil, s.unavailable("issue verification code", err)
	}

	subject, body := service.VerificationMail(code)
	s.mail.Enqueue(email, subject, body)

	res := &RegisterResult{
		UserID:               userID,
		VerificationRequired: true,
	}

	if s.ExposeCodes {
		res.DebugCode = code
	}

	return res, nil
}

// VerifyEmail consumes the code and flips the account to verified. The
// first bearer token is issued here, not at registration.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (string, error) {
	email = NormalizeEmail(email)

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}

		return "", s.unavailable("find account", err)
	}

	if account.Provider != model.ProviderPassword {
		// OAuth accounts are pre-verified and never hold a code.
		return "", ErrNotFound
	}

	if err := s.codes.Validate(ctx, email, code); err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidCode), errors.Is(err, ErrExpiredCode):
			return "", err
		default:
			return "", s.unavailable("validate code", err)
		}
	}

	err = s.retry(func() error {
		return s.store.UpdateAccountFields(ctx, account.ID, map[string]any{"verified": true})
	})
	if err != nil {
		return "", s.unavailable("mark account verified", err)
	}

	token, err := s.tokens.IssueBearer(account.ID)
	if err != nil {
		return "", s.unavailable("issue bearer token", err)
	}

	return token, nil
}

// Login authenticates a password account. Missing account, wrong
// provider and wrong password all collapse into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Profile, string, error) {
	email = NormalizeEmail(email)

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}

		return nil, "", s.unavailable("find account", err)
	}

	if account.Provider != model.ProviderPassword || account.PasswordHash == "" {
		return nil, "", ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, "", s.unavailable("verify password", err)
	}

	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	if !account.Verified {
		return nil, "", ErrVerificationRequired
	}

	token, err := s.tokens.IssueBearer(account.ID)
	if err != nil {
		return nil, "", s.unavailable("issue bearer token", err)
	}

	return NewProfile(account), token, nil
}

// ResendVerification reissues a code for an unverified password
// account, overwriting the previous one, and queues a fresh mail.
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}

		return "", s.unavailable("find account", err)
	}

	if account.Provider != model.ProviderPassword || account.Verified {
		return "", ErrNotFound
	}

	if s.resend != nil && !s.resend.Allow(email) {
		return "", ErrResendCooldown
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return "", s.unavailable("issue verification code", err)
	}

	subject, body := service.VerificationMail(code)
	s.mail.Enqueue(email, subject, body)

	if s.ExposeCodes {
		return code, nil
	}

	return "", nil
}

// OAuthExchange trades an identity-provider assertion for an account
// and an opaque session token. Accounts are keyed by a
// provider-namespaced identifier so an OAuth identity never silently
// merges with a password account sharing the email.
func (s *Service) OAuthExchange(ctx context.Context, code string) (*Profile, string, error) {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidAssertion) {
			return nil, "", ErrUnauthenticated
		}

		return nil, "", s.unavailable("exchange identity assertion", err)
	}

	accountID := "oauth_" + identity.ExternalID
	email := NormalizeEmail(identity.Email)

	account, err := s.store.FindAccountByID(ctx, accountID)
	switch {
	case err == nil:
		// Repeat sign-in, refresh the mutable profile bits.
		err = s.store.UpdateAccountFields(ctx, accountID, map[string]any{
			"display_name": identity.DisplayName,
			"avatar_url":   identity.AvatarURL,
		})
		if err != nil {
			return nil, "", s.unavailable("refresh account", err)
		}

		account.DisplayName = identity.DisplayName
		account.AvatarURL = identity.AvatarURL

	case errors.Is(err, store.ErrNotFound):
		account = &model.Account{
			ID:          accountID,
			Email:       email,
			DisplayName: identity.DisplayName,
			AvatarURL:   identity.AvatarURL,
			Provider:    model.ProviderOAuth,
			Tier:        model.TierFree,
			Verified:    true, // the provider already proved email ownership
			CreatedAt:   s.Now(),
		}

		if err := s.retry(func() error { return s.store.InsertAccount(ctx, account) }); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return nil, "", ErrConflict
			}

			return nil, "", s.unavailable("create account", err)
		}

	default:
		return nil, "", s.unavailable("find account", err)
	}

	token, err := security.OpaqueToken()
	if err != nil {
		return nil, "", s.unavailable("generate session token", err)
	}

	now := s.Now()

	err = s.retry(func() error {
		return s.store.InsertSession(ctx, &model.Session{
			AccountID: account.ID,
			Token:     token,
			IssuedAt:  now,
			ExpiresAt: now.Add(SessionTTL),
		})
	})
	if err != nil {
		return nil, "", s.unavailable("create session", err)
	}

	return NewProfile(account), token, nil
}

// ResolveCredential turns a presented credential into an account. The
// opaque-session lookup runs first (OAuth path), then the bearer decode
// (password path); callers may present either shape at one endpoint.
func (s *Service) ResolveCredential(ctx context.Context, credential string) (*model.Account, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := s.store.FindSessionByToken(ctx, credential)
	switch {
	case err == nil:
		// An expired session fails even while the row still exists, the
		// sweep only garbage-collects.
		if s.Now().After(sess.ExpiresAt) {
			return nil, ErrUnauthenticated
		}

		return s.accountByID(ctx, sess.AccountID)

	case errors.Is(err, store.ErrNotFound):
		// Fall through to the bearer decode.

	default:
		return nil, s.unavailable("look up session", err)
	}

	accountID, err := s.tokens.DecodeBearer(credential)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return s.accountByID(ctx, accountID)
}

// Logout deletes every opaque session of the credential's account.
// Self-describing bearer tokens stay valid until expiry, there is no
// denylist.
func (s *Service) Logout(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}

	sess, err := s.store.FindSessionByToken(ctx, credential)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}

		return s.unavailable("look up session", err)
	}

	err = s.retry(func() error { return s.store.DeleteSessionsByAccount(ctx, sess.AccountID) })
	if err != nil {
		return s.unavailable("delete sessions", err)
	}

	return nil
}

func (s *Service) accountByID(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.store.FindAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}

		return nil, s.unavailable("find account", err)
	}

	return account, nil
}

// retry reruns fn once after a short backoff on transient failure.
// Known outcomes are terminal and never retried.
func (s *Service) retry(fn func() error) error {
	err := fn()
	if err == nil || isTerminal(err) {
		return err
	}

	time.Sleep(retryBackoff)
	return fn()
}

func isTerminal(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrDuplicateEmail) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// unavailable logs the real cause server-side and hands the caller the
// generic outcome.
func (s *Service) unavailable(op string, err error) error {
	zap.L().Error("Auth operation failed",
		zap.String("op", op),
		zap.Error(err),
	)

	return ErrUnavailable
}

// NormalizeEmail lowercases and trims an address so lookups and the
// uniqueness constraint see one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
