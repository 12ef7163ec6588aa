package pages_test

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/adapter/driving/web/templates/pages"
	vm "github.com/aidaco/wwwmin/internal/adapter/driving/web/viewmodel"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestIndex(t *testing.T) {
	got := render(t, pages.Index(vm.IndexPage{
		ContentHTML: "<h1>Welcome</h1>",
		LinkGroups: []vm.LinkGroup{
			{Category: "Elsewhere", Links: []vm.Link{{Name: "Mastodon", Href: "https://example.social/@me"}}},
			{Category: "Bad", Links: []vm.Link{{Name: "Script", Href: "javascript:alert(1)"}}},
		},
		CSRFToken: "tok",
		FormError: "Email is required",
	}))

	assert.Contains(t, got, `<section class="content"><h1>Welcome</h1></section>`)
	assert.Contains(t, got, `<div class="accordion" data-accordion="Elsewhere" data-open>`)
	assert.Contains(t, got, `<div class="accordion" data-accordion="Bad">`)
	assert.Contains(t, got, `<a rel="noopener" href="https://example.social/@me">Mastodon</a>`)
	assert.Contains(t, got, `href="about:invalid#TemplFailedSanitizationURL"`)
	assert.Contains(t, got, `<p class="error">Email is required</p>`)
	assert.Contains(t, got, `name="csrf_token" value="tok"`)
	assert.NotContains(t, got, "operating-hours")
}

func TestIndex_Hours(t *testing.T) {
	page := vm.IndexPage{HoursEnabled: true, Hours: []vm.DayHours{{Day: "Monday", Hours: "09:00-17:00"}}}

	assert.Contains(t, render(t, pages.Index(page)), "We are currently closed.")

	page.Open = true
	got := render(t, pages.Index(page))
	assert.Contains(t, got, "We are open.")
	assert.Contains(t, got, "<tr><th>Monday</th><td>09:00-17:00</td></tr>")
}

func TestLogin(t *testing.T) {
	got := render(t, pages.Login(vm.LoginPage{Next: `/admin.html?x="1"`}))
	assert.Contains(t, got, `<input type="hidden" name="next" value="/admin.html?x=&#34;1&#34;">`)
	assert.NotContains(t, got, `class="error"`)

	got = render(t, pages.Login(vm.LoginPage{Failed: true}))
	assert.Contains(t, got, "Incorrect username or password.")
}

func TestClosed(t *testing.T) {
	got := render(t, pages.Closed(vm.ClosedPage{Detail: "Back at 09:00 <Monday>"}))
	assert.Contains(t, got, "<p>Back at 09:00 &lt;Monday&gt;</p>")
	assert.Contains(t, got, `<a href="/">Back</a>`)
}

func TestAdmin(t *testing.T) {
	got := render(t, pages.Admin(vm.AdminPage{
		Username: "admin",
		Notice:   "Saved",
		Active: []vm.Submission{
			{ID: 4, Email: "visitor@example.com", MessageHTML: "<p><strong>hi</strong></p>", ReceivedAt: "2026-10-14 09:00"},
		},
		Categories: []vm.Category{{ID: 1, Name: "Social"}, {ID: 2, Name: "Shops"}},
		Links:      []vm.Link{{ID: 9, Name: "Shop", Href: "https://shop.example", CategoryID: 2}},
		Upgrade:    vm.Upgrade{State: "idle", Branch: "main"},
		CSRFToken:  "tok",
	}))

	assert.Contains(t, got, `<span class="user">admin</span>`)
	assert.Contains(t, got, `<p class="notice">Saved</p>`)
	assert.Contains(t, got, `<a href="mailto:visitor@example.com">visitor@example.com</a>`)
	assert.NotContains(t, got, `class="phone"`)
	assert.Contains(t, got, "<p><strong>hi</strong></p>")
	assert.Contains(t, got, `<input type="hidden" name="id" value="4">`)
	assert.Contains(t, got, `<h2>Archived submissions</h2><p class="empty">None.</p>`)
	assert.Contains(t, got, `<option value="2" selected>Shops</option>`)
	assert.Contains(t, got, `<option value="1">Social</option>`)
	assert.Contains(t, got, "<dt>State</dt><dd>idle</dd><dt>Branch</dt><dd>main</dd></dl>")
	assert.NotContains(t, got, `action="/form/upgrade"`)
	assert.Contains(t, got, `action="/form/restart"`)
	assert.NotContains(t, got, "push-subscribe")
}

func TestAdmin_UpgradeEnabled(t *testing.T) {
	got := render(t, pages.Admin(vm.AdminPage{Upgrade: vm.Upgrade{Enabled: true}, PushEnabled: true}))
	assert.Contains(t, got, `action="/form/upgrade"`)
	assert.Contains(t, got, "push-subscribe")
}
