package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
)

// --- Mock implementations ---

type mockAuthenticator struct {
	user *model.User
	err  error
	got  application.Credentials
}

func (m *mockAuthenticator) Authenticate(_ context.Context, creds application.Credentials) (*model.User, error) {
	m.got = creds
	return m.user, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := session.UserFrom(r.Context())
		if !ok {
			http.Error(w, "no user", http.StatusTeapot)
			return
		}
		_, _ = io.WriteString(w, u.Username)
	})
}

func TestGuard_PassesAuthenticatedUser(t *testing.T) {
	auth := &mockAuthenticator{user: &model.User{ID: 1, Username: "admin"}}
	h := session.NewGuard(auth, discardLogger()).Require(protected())

	req := httptest.NewRequest(http.MethodGet, "/admin.html", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
	assert.Equal(t, "cookie-token", auth.got.Cookie)
	assert.Equal(t, "Bearer header-token", auth.got.Header)
}

func TestGuard_RedirectsBrowsers(t *testing.T) {
	auth := &mockAuthenticator{err: application.ErrLoginRequired}
	h := session.NewGuard(auth, discardLogger()).Require(protected())

	tests := []struct {
		target   string
		location string
	}{
		{"/admin.html", "/login.html?next=/admin.html"},
		{"/admin.html?tab=links", "/login.html?next=/admin.html%3Ftab%3Dlinks"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("Accept", "text/html")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestGuard_UnauthorizedForJSONClients(t *testing.T) {
	auth := &mockAuthenticator{err: application.ErrLoginRequired}
	h := session.NewGuard(auth, discardLogger()).Require(protected())

	req := httptest.NewRequest(http.MethodGet, "/api/submissions", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized.", body["error"])
}

func TestGuard_StoreFailure(t *testing.T) {
	auth := &mockAuthenticator{err: errors.New("database is locked")}
	h := session.NewGuard(auth, discardLogger()).Require(protected())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin.html", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/admin.html"},
		{"/admin.html", "/admin.html"},
		{"/admin.html?tab=links", "/admin.html?tab=links"},
		{"https://evil.example", "/admin.html"},
		{"//evil.example/admin.html", "/admin.html"},
		{"/\\evil.example", "/admin.html"},
		{"admin.html", "/admin.html"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, session.SafeNext(tt.in))
		})
	}
}

func TestSetCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	session.SetCookie(rec, "tok", 30*24*time.Hour, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, session.CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, 2592000, c.MaxAge)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}
