package security

import (
	"errors"
	"fmt"
	"time"

	"cutnpaste/api/pkg/util"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// BearerTTL is how long a signed auth token stays valid. Bearer
	// tokens are self-describing and can't be revoked server-side, so
	// this is kept short enough to bound the damage of a leaked token.
	BearerTTL = time.Hour * 24 * 7

	opaqueTokenSize = 32
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenIssuer creates and validates HS256-signed bearer tokens. The
// signing secret comes from configuration, never from a literal.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration

	// Now is swapped out in tests to simulate the clock.
	Now func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    BearerTTL,
		Now:    time.Now,
	}
}

// IssueBearer signs a token embedding the account ID and an absolute
// expiry. Pure computation, never blocks.
func (t *TokenIssuer) IssueBearer(accountID string) (string, error) {
	now := t.Now()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": accountID,
		"type":    "auth",
		"iat":     now.Unix(),
		"exp":     now.Add(t.ttl).Unix(),
	})

	return tok.SignedString(t.secret)
}

// DecodeBearer validates the signature and expiry of a bearer token and
// returns the account ID it was issued for.
func (t *TokenIssuer) DecodeBearer(tokenStr string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.Now),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.Parse(tokenStr, func(tok *jwt.Token) (any, error) {
		if tok.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", tok.Method.Alg())
		}

		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}

		return "", ErrTokenInvalid
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", ErrTokenInvalid
	}

	accountID, ok := claims["user_id"].(string)
	if !ok || accountID == "" {
		return "", ErrTokenInvalid
	}

	return accountID, nil
}

// OpaqueToken returns a random, unguessable session token. Unlike
// bearer tokens it carries no information and must be resolved through
// the session store.
func OpaqueToken() (string, error) {
	return util.GenerateToken(opaqueTokenSize)
}
