package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFToken_IssuesOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	token := csrfToken(rec, httptest.NewRequest(http.MethodGet, "/", nil), true)
	require.Len(t, token, 2*csrfTokenBytes)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookieName, cookies[0].Name)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	assert.Equal(t, token, csrfToken(rec, req, true))
	assert.Empty(t, rec.Result().Cookies())
}

func TestValidateCSRF(t *testing.T) {
	post := func(cookie, field, header string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/form/login",
			strings.NewReader(url.Values{csrfFormField: {field}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
		}
		return req
	}

	assert.True(t, validateCSRF(post("abc", "abc", "")))
	assert.True(t, validateCSRF(post("abc", "", "abc")))
	assert.False(t, validateCSRF(post("abc", "abd", "")))
	assert.False(t, validateCSRF(post("", "abc", "")))
	assert.False(t, validateCSRF(post("abc", "", "")))
}
