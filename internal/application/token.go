package application

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the payload of a session token: the user id, an optional
// ";"-joined scope list, and the standard exp claim.
type sessionClaims struct {
	User   int64  `json:"user"`
	Scopes string `json:"scopes"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 session tokens. The secret is fixed
// for the lifetime of the codec.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec signing with secret and issuing tokens valid for ttl.
func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue returns a token for userID expiring TTL from now.
func (c *TokenCodec) Issue(userID int64, scopes ...string) (string, error) {
	return c.IssueWithTTL(userID, c.ttl, scopes...)
}

// IssueWithTTL returns a token for userID expiring ttl from now. A negative
// ttl produces an already expired token.
func (c *TokenCodec) IssueWithTTL(userID int64, ttl time.Duration, scopes ...string) (string, error) {
	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		User:   userID,
		Scopes: strings.Join(sorted, ";"),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of token and returns the user id
// and scopes it carries. Every failure is reported as ErrAuthentication.
func (c *TokenCodec) Validate(token string) (int64, []string, error) {
	var claims sessionClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return 0, nil, ErrAuthentication
	}

	var scopes []string
	if claims.Scopes != "" {
		scopes = strings.Split(claims.Scopes, ";")
	}
	return claims.User, scopes, nil
}
