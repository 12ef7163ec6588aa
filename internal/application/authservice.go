// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Credentials are the raw session credentials presented by a request.
// Cookie takes precedence over Header when both are set.
type Credentials struct {
	Cookie string
	Header string
}

// token returns the presented bearer token, or "" when none was presented.
func (c Credentials) token() string {
	if c.Cookie != "" {
		return c.Cookie
	}
	h := strings.TrimSpace(c.Header)
	if scheme, rest, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "bearer") {
		h = strings.TrimSpace(rest)
	}
	return h
}

// Authenticator turns passwords into session tokens and decides whether a
// request carries a valid admin session.
type Authenticator struct {
	users  driven.UserStore
	hasher *PasswordHasher
	tokens *TokenCodec
	logger *slog.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

// NewAuthenticator creates an Authenticator with all required dependencies.
func NewAuthenticator(users driven.UserStore, hasher *PasswordHasher, tokens *TokenCodec, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// TokenTTL returns the lifetime of tokens issued by Login.
func (a *Authenticator) TokenTTL() time.Duration {
	return a.tokens.TTL()
}

// HashPassword returns a salted argon2id hash of plaintext.
func (a *Authenticator) HashPassword(ctx context.Context, plaintext string) (string, error) {
	return a.hasher.Hash(ctx, plaintext)
}

// VerifyPassword returns nil when plaintext matches hash and
// ErrAuthentication otherwise.
func (a *Authenticator) VerifyPassword(ctx context.Context, hash, plaintext string) error {
	return a.hasher.Verify(ctx, hash, plaintext)
}

// IssueToken returns a session token for userID valid for ttl.
func (a *Authenticator) IssueToken(userID int64, ttl time.Duration) (string, error) {
	return a.tokens.IssueWithTTL(userID, ttl)
}

// ValidateToken returns the user id carried by token, or ErrAuthentication.
func (a *Authenticator) ValidateToken(token string) (int64, error) {
	userID, _, err := a.tokens.Validate(token)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// CreateUser provisions a new admin account.
func (a *Authenticator) CreateUser(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, errors.New("username and password are required")
	}

	hash, err := a.hasher.Hash(ctx, password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.users.Create(ctx, username, hash)
	if err != nil {
		return model.User{}, err
	}

	a.logger.Info("admin user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks username and password and returns the user with a fresh
// session token. Unknown users and wrong passwords both yield ErrAuthentication.
func (a *Authenticator) Login(ctx context.Context, username, password string) (model.User, string, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		return model.User{}, "", fmt.Errorf("look up user: %w", err)
	}

	if user == nil {
		// Match the cost of the wrong-password path.
		placeholder, err := a.placeholderHash(ctx)
		if err != nil {
			a.logger.Warn("unknown user login not cost-matched", "error", err)
			return model.User{}, "", ErrAuthentication
		}
		_ = a.hasher.Verify(ctx, placeholder, password)
		return model.User{}, "", ErrAuthentication
	}

	if err := a.hasher.Verify(ctx, user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrAuthentication) {
			return model.User{}, "", ErrAuthentication
		}
		return model.User{}, "", fmt.Errorf("verify password: %w", err)
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return model.User{}, "", err
	}

	return *user, token, nil
}

// Authenticate resolves the admin behind a request. Missing credentials,
// invalid tokens and tokens for deleted users all yield ErrLoginRequired.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*model.User, error) {
	token := creds.token()
	if token == "" {
		return nil, ErrLoginRequired
	}

	userID, err := a.ValidateToken(token)
	if err != nil {
		return nil, ErrLoginRequired
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user %d: %w", userID, err)
	}
	if user == nil {
		return nil, ErrLoginRequired
	}

	return user, nil
}

// placeholderHash returns the hash verified for unknown users. A failed
// computation is not cached, so the next unknown-user login retries it.
func (a *Authenticator) placeholderHash(ctx context.Context) (string, error) {
	a.dummyMu.Lock()
	defer a.dummyMu.Unlock()
	if a.dummyHash != "" {
		return a.dummyHash, nil
	}
	hash, err := a.hasher.Hash(ctx, "placeholder")
	if err != nil {
		return "", fmt.Errorf("compute placeholder hash: %w", err)
	}
	a.dummyHash = hash
	return hash, nil
}
