// Package session maps request credentials onto the Authenticator and turns
// a missing or invalid session into the right response for the client: a
// redirect to the login page for browsers, 401 for JSON clients.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
)

const (
	// CookieName is used for both the session cookie and the bearer header.
	CookieName = "Authorization"

	// LoginPath is the page unauthenticated browsers are sent to.
	LoginPath = "/login.html"

	// DefaultNext is where a successful form login lands without a next value.
	DefaultNext = "/admin.html"
)

// Authenticator resolves the admin behind a set of request credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, creds application.Credentials) (*model.User, error)
}

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user stored by the guard, if any.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey{}).(*model.User)
	return u, ok && u != nil
}

// CredentialsFrom collects the session cookie and the Authorization header.
func CredentialsFrom(r *http.Request) application.Credentials {
	var creds application.Credentials
	if c, err := r.Cookie(CookieName); err == nil {
		creds.Cookie = c.Value
	}
	creds.Header = r.Header.Get(CookieName)
	return creds
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// LoginRedirect returns the login page URL that brings the client back to
// the request's original location.
func LoginRedirect(r *http.Request) string {
	next := strings.ReplaceAll(url.QueryEscape(r.URL.RequestURI()), "%2F", "/")
	return LoginPath + "?next=" + next
}

// SafeNext returns next when it is a local absolute path, DefaultNext otherwise.
func SafeNext(next string) string {
	if next == "" || next[0] != '/' {
		return DefaultNext
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return DefaultNext
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return DefaultNext
	}
	return next
}

// SetCookie stores token in the session cookie for ttl.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Round(time.Second).Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Guard protects handlers behind a valid admin session.
type Guard struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(auth Authenticator, logger *slog.Logger) *Guard {
	return &Guard{auth: auth, logger: logger}
}

// Require wraps next so it only runs for authenticated admins. The user is
// available to next through UserFrom.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.auth.Authenticate(r.Context(), CredentialsFrom(r))
		if err != nil {
			if errors.Is(err, application.ErrLoginRequired) {
				g.loginRequired(w, r)
				return
			}
			g.logger.Error("failed to authenticate request", "path", r.URL.Path, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireFunc is Require for a handler function.
func (g *Guard) RequireFunc(fn http.HandlerFunc) http.Handler {
	return g.Require(fn)
}

func (g *Guard) loginRequired(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}
	http.Redirect(w, r, LoginRedirect(r), http.StatusFound)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
