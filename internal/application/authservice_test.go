package application_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
	err    error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[int64]model.User)}
}

func (m *mockUserStore) Create(_ context.Context, username, hash string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.User{}, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return model.User{}, driven.ErrUserExists
		}
	}
	m.nextID++
	u := model.User{ID: m.nextID, Username: username, PasswordHash: hash}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cheapParams keeps argon2 fast in tests.
func cheapParams() application.Argon2Params {
	return application.Argon2Params{
		Iterations: 1,
		Memory:     1024,
		Threads:    1,
		SaltLength: 16,
		KeyLength:  32,
	}
}

func newTestAuthenticator(t *testing.T, secret string) (*application.Authenticator, *mockUserStore) {
	t.Helper()
	store := newMockUserStore()
	auth := application.NewAuthenticator(
		store,
		application.NewPasswordHasher(cheapParams(), 2),
		application.NewTokenCodec([]byte(secret), 30*24*time.Hour),
		discardLogger(),
	)
	return auth, store
}

// --- Tests ---

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	ctx := context.Background()
	h := application.NewPasswordHasher(cheapParams(), 1)

	hash, err := h.Hash(ctx, "hunter2")
	require.NoError(t, err)
	assert.Regexp(t, `^\$argon2id\$v=19\$m=1024,t=1,p=1\$[A-Za-z0-9+/]+\$[A-Za-z0-9+/]+$`, hash)

	assert.NoError(t, h.Verify(ctx, hash, "hunter2"))
	assert.ErrorIs(t, h.Verify(ctx, hash, "hunter3"), application.ErrAuthentication)
}

func TestPasswordHasher_SaltsEveryHash(t *testing.T) {
	ctx := context.Background()
	h := application.NewPasswordHasher(cheapParams(), 1)

	a, err := h.Hash(ctx, "same")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NoError(t, h.Verify(ctx, a, "same"))
	assert.NoError(t, h.Verify(ctx, b, "same"))
}

func TestPasswordHasher_VerifyUsesEncodedParameters(t *testing.T) {
	ctx := context.Background()
	old := application.NewPasswordHasher(cheapParams(), 1)
	hash, err := old.Hash(ctx, "secret")
	require.NoError(t, err)

	stronger := cheapParams()
	stronger.Iterations = 2
	current := application.NewPasswordHasher(stronger, 1)

	assert.NoError(t, current.Verify(ctx, hash, "secret"))
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	ctx := context.Background()
	h := application.NewPasswordHasher(cheapParams(), 1)

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	} {
		assert.ErrorIs(t, h.Verify(ctx, encoded, "x"), application.ErrAuthentication, encoded)
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := application.NewTokenCodec([]byte("s3cret"), time.Hour)

	token, err := codec.IssueWithTTL(42, time.Minute, "write", "admin")
	require.NoError(t, err)

	userID, scopes, err := codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, []string{"admin", "write"}, scopes)
}

func TestTokenCodec_Rejects(t *testing.T) {
	codec := application.NewTokenCodec([]byte("current"), time.Hour)
	other := application.NewTokenCodec([]byte("previous"), time.Hour)

	expired, err := codec.IssueWithTTL(1, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.Issue(1)
	require.NoError(t, err)
	valid, err := codec.Issue(1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "different secret", token: foreign},
		{name: "tampered", token: valid[:len(valid)-2] + "xx"},
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "unsigned", token: "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VyIjoxLCJleHAiOjQxMDI0NDQ4MDB9."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.Validate(tt.token)
			assert.ErrorIs(t, err, application.ErrAuthentication)
		})
	}
}

func TestAuthenticator_LoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t, "secret")

	created, err := auth.CreateUser(ctx, "admin", "correct horse")
	require.NoError(t, err)

	user, token, err := auth.Login(ctx, "admin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotEmpty(t, token)

	userID, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, userID)

	got, err := auth.Authenticate(ctx, application.Credentials{Header: "Bearer " + token})
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)

	got, err = auth.Authenticate(ctx, application.Credentials{Header: token})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestAuthenticator_LoginFailures(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t, "secret")

	_, err := auth.CreateUser(ctx, "admin", "right")
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, application.ErrAuthentication)

	_, _, err = auth.Login(ctx, "nobody", "right")
	assert.ErrorIs(t, err, application.ErrAuthentication)
}

func TestAuthenticator_PlaceholderHashRetriedAfterFailure(t *testing.T) {
	ctx := context.Background()
	hasher := application.NewPasswordHasher(cheapParams(), 2)
	auth := application.NewAuthenticator(
		newMockUserStore(),
		hasher,
		application.NewTokenCodec([]byte("secret"), time.Hour),
		discardLogger(),
	)

	application.SetRandReader(hasher, iotest.ErrReader(errors.New("entropy exhausted")))
	_, _, err := auth.Login(ctx, "nobody", "guess")
	assert.ErrorIs(t, err, application.ErrAuthentication)
	assert.Empty(t, application.CachedPlaceholderHash(auth))

	application.SetRandReader(hasher, rand.Reader)
	_, _, err = auth.Login(ctx, "nobody", "guess")
	assert.ErrorIs(t, err, application.ErrAuthentication)
	first := application.CachedPlaceholderHash(auth)
	require.NotEmpty(t, first)

	_, _, err = auth.Login(ctx, "nobody", "again")
	assert.ErrorIs(t, err, application.ErrAuthentication)
	assert.Equal(t, first, application.CachedPlaceholderHash(auth))
}

func TestAuthenticator_LoginStoreError(t *testing.T) {
	auth, store := newTestAuthenticator(t, "secret")
	store.err = errors.New("disk on fire")

	_, _, err := auth.Login(context.Background(), "admin", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrAuthentication)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestAuthenticator_CreateUser(t *testing.T) {
	ctx := context.Background()
	auth, store := newTestAuthenticator(t, "secret")

	_, err := auth.CreateUser(ctx, "  ", "pw")
	assert.Error(t, err)
	_, err = auth.CreateUser(ctx, "admin", "")
	assert.Error(t, err)

	user, err := auth.CreateUser(ctx, "admin", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", store.users[user.ID].PasswordHash)

	_, err = auth.CreateUser(ctx, "admin", "other")
	assert.ErrorIs(t, err, driven.ErrUserExists)
}

func TestAuthenticator_AuthenticateRequiresLogin(t *testing.T) {
	ctx := context.Background()
	auth, store := newTestAuthenticator(t, "secret")
	stranger, _ := newTestAuthenticator(t, "other-secret")

	user, err := auth.CreateUser(ctx, "admin", "pw")
	require.NoError(t, err)

	expired, err := auth.IssueToken(user.ID, -time.Second)
	require.NoError(t, err)
	foreign, err := stranger.IssueToken(user.ID, time.Hour)
	require.NoError(t, err)
	orphan, err := auth.IssueToken(999, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds application.Credentials
	}{
		{name: "no credentials", creds: application.Credentials{}},
		{name: "malformed", creds: application.Credentials{Header: "Bearer abc.def"}},
		{name: "expired", creds: application.Credentials{Cookie: expired}},
		{name: "different secret", creds: application.Credentials{Header: foreign}},
		{name: "unknown user", creds: application.Credentials{Cookie: orphan}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Authenticate(ctx, tt.creds)
			assert.ErrorIs(t, err, application.ErrLoginRequired)
		})
	}

	t.Run("deleted user", func(t *testing.T) {
		token, err := auth.IssueToken(user.ID, time.Hour)
		require.NoError(t, err)
		store.delete(user.ID)

		_, err = auth.Authenticate(ctx, application.Credentials{Cookie: token})
		assert.ErrorIs(t, err, application.ErrLoginRequired)
	})
}

func TestAuthenticator_CookieTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t, "secret")

	user, err := auth.CreateUser(ctx, "admin", "pw")
	require.NoError(t, err)
	good, err := auth.IssueToken(user.ID, time.Hour)
	require.NoError(t, err)

	got, err := auth.Authenticate(ctx, application.Credentials{Cookie: good, Header: "Bearer garbage"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = auth.Authenticate(ctx, application.Credentials{Cookie: "garbage", Header: "Bearer " + good})
	assert.ErrorIs(t, err, application.ErrLoginRequired)
}

func TestAuthenticator_AuthenticateStoreError(t *testing.T) {
	ctx := context.Background()
	auth, store := newTestAuthenticator(t, "secret")

	user, err := auth.CreateUser(ctx, "admin", "pw")
	require.NoError(t, err)
	token, err := auth.IssueToken(user.ID, time.Hour)
	require.NoError(t, err)

	store.err = errors.New("db closed")
	_, err = auth.Authenticate(ctx, application.Credentials{Cookie: token})
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrLoginRequired)
}
