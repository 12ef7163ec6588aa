package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/adapter/driven/sqlite"
	httphandler "github.com/aidaco/wwwmin/internal/adapter/driving/http"
	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
	"github.com/aidaco/wwwmin/internal/adapter/driving/web"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
)

// --- Mock implementations ---

type nopInstaller struct{}

func (nopInstaller) Install(context.Context) error { return nil }

type nopProcess struct{}

func (nopProcess) ReleaseDescriptors() error { return nil }
func (nopProcess) CheckRestart() error       { return nil }
func (nopProcess) Restart() error            { return nil }
func (nopProcess) Terminate() error          { return nil }

// --- Fixture ---

type site struct {
	server *httptest.Server
	client *http.Client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSite(t *testing.T, hours *application.HoursService) *site {
	t.Helper()
	logger := discardLogger()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "wwwmin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if hours == nil {
		hours = application.NewHoursService(false, model.DefaultSchedule(), time.UTC)
	}

	hasher := application.NewPasswordHasher(application.Argon2Params{
		Iterations: 1, Memory: 1024, Threads: 1, SaltLength: 16, KeyLength: 32,
	}, 2)
	auth := application.NewAuthenticator(sqlite.NewUserRepo(db), hasher,
		application.NewTokenCodec([]byte("jwt-secret"), time.Hour), logger)
	_, err = auth.CreateUser(ctx, "admin", "hunter2")
	require.NoError(t, err)

	tasks := application.NewTaskRunner(logger)
	upgrade := application.NewUpgradeService(application.UpgradeConfig{Branch: "main"},
		nopInstaller{}, nopProcess{}, tasks, nil, logger)
	t.Cleanup(func() {
		upgrade.Wait()
		_ = tasks.Shutdown(context.Background())
	})

	submissions := application.NewSubmissionService(sqlite.NewSubmissionRepo(db), hours, tasks, logger)
	links := application.NewLinkService(sqlite.NewLinkRepo(db), []model.StaticLink{
		{Category: "Elsewhere", Name: "Mastodon", Href: "https://example.social/@me"},
	})
	guard := session.NewGuard(auth, logger)

	wh := web.NewHandler(web.Deps{
		Auth:        auth,
		Submissions: submissions,
		Links:       links,
		Hours:       hours,
		Upgrade:     upgrade,
		Title:       "Test Site",
		Content:     "# Hello there\n\nWelcome to **the site**.",
	}, guard, logger)

	api := httphandler.NewHandler(httphandler.Deps{
		Auth:        auth,
		Submissions: submissions,
		Links:       links,
		Hours:       hours,
		Upgrade:     upgrade,
		ClosedPage:  http.HandlerFunc(wh.Closed),
	}, guard, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, api)
	web.RegisterRoutes(mux, wh)

	srv := httptest.NewServer(httphandler.ApplyMiddleware(mux, logger))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &site{server: srv, client: client}
}

func (s *site) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.Get(s.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (s *site) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.PostForm(s.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]+)"`)

// csrf loads path and returns the token embedded in its forms.
func (s *site) csrf(t *testing.T, path string) string {
	t.Helper()
	resp, body := s.get(t, path)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "no csrf field on %s", path)
	return m[1]
}

func (s *site) login(t *testing.T) {
	t.Helper()
	token := s.csrf(t, "/login.html")
	resp, _ := s.post(t, "/form/login", url.Values{
		"csrf_token": {token},
		"username":   {"admin"},
		"password":   {"hunter2"},
		"next":       {"/admin.html"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// --- Pages ---

func TestIndex_RendersContentAndLinks(t *testing.T) {
	s := newSite(t, nil)

	for _, path := range []string{"/", "/index.html"} {
		resp, body := s.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, body, "<title>Test Site</title>")
		assert.Contains(t, body, "<strong>the site</strong>")
		assert.Contains(t, body, "https://example.social/@me")
		assert.Contains(t, body, `action="/form/submissions"`)
	}
}

func TestAdmin_TokenRoundTrip(t *testing.T) {
	s := newSite(t, nil)

	resp, err := http.PostForm(s.server.URL+"/api/token", url.Values{
		"username": {"admin"},
		"password": {"hunter2"},
	})
	require.NoError(t, err)
	var tok httphandler.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	_ = resp.Body.Close()
	require.NotEmpty(t, tok.AccessToken)

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/admin.html", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", tok.AccessToken)
	resp, err = s.client.Do(req)
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h1>Admin</h1>")
	assert.Contains(t, body, "admin")

	resp, _ = s.get(t, "/admin.html")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login.html?next=/admin.html", resp.Header.Get("Location"))
}

func TestServiceWorker(t *testing.T) {
	s := newSite(t, nil)

	resp, body := s.get(t, "/worker.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Service-Worker-Allowed"))
	assert.Contains(t, body, "addEventListener")

	resp, _ = s.get(t, "/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// --- Forms ---

func TestFormLogin(t *testing.T) {
	s := newSite(t, nil)
	token := s.csrf(t, "/login.html?next=/admin.html")

	resp, _ := s.post(t, "/form/login", url.Values{
		"csrf_token": {token},
		"username":   {"admin"},
		"password":   {"wrong"},
		"next":       {"/admin.html"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login.html?failed=1&next=%2Fadmin.html", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/login", url.Values{
		"csrf_token": {token},
		"username":   {"admin"},
		"password":   {"hunter2"},
		"next":       {"/admin.html?notice=hi"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin.html?notice=hi", resp.Header.Get("Location"))

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "Authorization" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, 3600, session.MaxAge)

	resp, body := s.get(t, "/admin.html?notice=hi")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<p class="notice">hi</p>`)
}

func TestFormLogin_UnsafeNextFallsBackToAdmin(t *testing.T) {
	s := newSite(t, nil)
	token := s.csrf(t, "/login.html")

	resp, _ := s.post(t, "/form/login", url.Values{
		"csrf_token": {token},
		"username":   {"admin"},
		"password":   {"hunter2"},
		"next":       {"//evil.example/steal"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin.html", resp.Header.Get("Location"))
}

func TestForms_AnonymousPostsNeedNoCSRF(t *testing.T) {
	s := newSite(t, nil)

	resp, _ := s.post(t, "/form/submissions", url.Values{
		"email":   {"a@example.com"},
		"message": {"hi"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?sent=1", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/login", url.Values{
		"username": {"admin"},
		"password": {"hunter2"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin.html", resp.Header.Get("Location"))
	assert.NotEmpty(t, resp.Cookies())
}

func TestForms_AuthenticatedPostsRequireCSRF(t *testing.T) {
	s := newSite(t, nil)
	s.login(t)

	resp, _ := s.post(t, "/form/submissions/archive", url.Values{"id": {"1"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.post(t, "/form/links/categories", url.Values{
		"csrf_token": {"forged"},
		"name":       {"Social"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.post(t, "/form/upgrade", url.Values{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFormSubmission(t *testing.T) {
	s := newSite(t, nil)
	token := s.csrf(t, "/")

	resp, body := s.post(t, "/form/submissions", url.Values{
		"csrf_token": {token},
		"email":      {"not-an-email"},
		"message":    {"hello"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "email")

	resp, _ = s.post(t, "/form/submissions", url.Values{
		"csrf_token": {token},
		"email":      {"visitor@example.com"},
		"phone":      {"555-0100"},
		"message":    {"Is the **shop** open?"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?sent=1", resp.Header.Get("Location"))

	s.login(t)
	resp, body = s.get(t, "/admin.html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "visitor@example.com")
	assert.Contains(t, body, "<strong>shop</strong>")
}

func TestFormSubmission_Closed(t *testing.T) {
	saturday := time.Date(2024, 6, 29, 12, 0, 0, 0, time.UTC)
	hours := application.NewHoursService(true, model.DefaultSchedule(), time.UTC).
		WithClock(func() time.Time { return saturday })
	s := newSite(t, hours)
	token := s.csrf(t, "/")

	resp, body := s.post(t, "/form/submissions", url.Values{
		"csrf_token": {token},
		"email":      {"visitor@example.com"},
		"message":    {"hello"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "This website is currently closed.")
	assert.Contains(t, body, "Saturday")

	// Browsers posting to the API get the same page.
	resp, err := s.client.Post(s.server.URL+"/api/submissions", "application/x-www-form-urlencoded",
		strings.NewReader("email=visitor%40example.com&message=hello"))
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "This website is currently closed.")
}

func TestFormArchive(t *testing.T) {
	s := newSite(t, nil)
	token := s.csrf(t, "/")
	resp, _ := s.post(t, "/form/submissions", url.Values{
		"csrf_token": {token},
		"email":      {"visitor@example.com"},
		"message":    {"archive me"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	s.login(t)

	resp, _ = s.post(t, "/form/submissions/archive", url.Values{"csrf_token": {token}, "id": {"1"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin.html?notice=Submission+archived.", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/submissions/archive", url.Values{"csrf_token": {token}, "id": {"99"}})
	assert.Equal(t, "/admin.html?notice=Submission+not+found.", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/submissions/unarchive", url.Values{"csrf_token": {token}, "id": {"1"}})
	assert.Equal(t, "/admin.html?notice=Submission+restored.", resp.Header.Get("Location"))
}

func TestFormLinks(t *testing.T) {
	s := newSite(t, nil)
	s.login(t)
	token := s.csrf(t, "/admin.html")

	resp, _ := s.post(t, "/form/links/categories", url.Values{"csrf_token": {token}, "name": {"Social"}})
	assert.Equal(t, "/admin.html?notice=Category+added.", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/links/categories", url.Values{"csrf_token": {token}, "name": {"Social"}})
	assert.Equal(t, "/admin.html?notice=Link+category+already+exists.", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/links", url.Values{
		"csrf_token":  {token},
		"name":        {"GitHub"},
		"href":        {"https://github.com/aidaco"},
		"category_id": {"1"},
	})
	assert.Equal(t, "/admin.html?notice=Link+added.", resp.Header.Get("Location"))

	resp, _ = s.post(t, "/form/links/update", url.Values{
		"csrf_token":  {token},
		"id":          {"1"},
		"name":        {"Code"},
		"href":        {"https://github.com/aidaco"},
		"category_id": {"1"},
	})
	assert.Equal(t, "/admin.html?notice=Link+updated.", resp.Header.Get("Location"))

	_, body := s.get(t, "/")
	assert.Contains(t, body, "Social")
	assert.Contains(t, body, "Code")
}

func TestFormTrigger_UpgradeDisabled(t *testing.T) {
	s := newSite(t, nil)
	s.login(t)
	token := s.csrf(t, "/admin.html")

	resp, _ := s.post(t, "/form/upgrade", url.Values{"csrf_token": {token}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin.html?notice=Upgrades+are+disabled.", resp.Header.Get("Location"))
}

func TestFormLogout(t *testing.T) {
	s := newSite(t, nil)
	s.login(t)
	token := s.csrf(t, "/admin.html")

	resp, _ := s.post(t, "/form/logout", url.Values{"csrf_token": {token}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = s.get(t, "/admin.html")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
