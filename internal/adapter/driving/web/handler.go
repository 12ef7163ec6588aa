// Package web implements the HTML driving adapter: the public landing page,
// the login page, the admin dashboard and the form posts behind them.
package web

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
	"github.com/aidaco/wwwmin/internal/adapter/driving/web/templates"
	"github.com/aidaco/wwwmin/internal/adapter/driving/web/templates/pages"
	vm "github.com/aidaco/wwwmin/internal/adapter/driving/web/viewmodel"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

const adminPath = "/admin.html"

// LoginObserver is told about form login attempts.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveLogin(string) {}

// Deps are the services behind the HTML pages. Content is the landing page
// markdown.
type Deps struct {
	Auth        *application.Authenticator
	Submissions *application.SubmissionService
	Links       *application.LinkService
	Hours       *application.HoursService
	Upgrade     *application.UpgradeService

	Title         string
	Content       string
	PushEnabled   bool
	SecureCookies bool
	Observer      LoginObserver
}

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	auth        *application.Authenticator
	submissions *application.SubmissionService
	links       *application.LinkService
	hours       *application.HoursService
	upgrade     *application.UpgradeService

	title       string
	contentHTML string
	pushEnabled bool
	secure      bool
	observer    LoginObserver
	guard       *session.Guard
	logger      *slog.Logger
}

// NewHandler creates a Handler. The landing page markdown is rendered once.
func NewHandler(d Deps, guard *session.Guard, logger *slog.Logger) *Handler {
	obs := d.Observer
	if obs == nil {
		obs = noopObserver{}
	}
	title := d.Title
	if title == "" {
		title = "wwwmin"
	}
	return &Handler{
		auth:        d.Auth,
		submissions: d.Submissions,
		links:       d.Links,
		hours:       d.Hours,
		upgrade:     d.Upgrade,
		title:       title,
		contentHTML: RenderMarkdown(d.Content),
		pushEnabled: d.PushEnabled,
		secure:      d.SecureCookies,
		observer:    obs,
		guard:       guard,
		logger:      logger,
	}
}

// Index renders the public landing page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, "")
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, formError string) {
	groups, err := h.links.Grouped(r.Context())
	if err != nil {
		h.logger.Error("failed to load links", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := vm.IndexPage{
		ContentHTML:  h.contentHTML,
		LinkGroups:   toLinkGroupViewModels(groups),
		HoursEnabled: h.hours.Enabled(),
		Open:         h.hours.OpenNow(),
		Hours:        toDayHoursViewModels(h.hours.DailyParts()),
		FormError:    formError,
		CSRFToken:    csrfToken(w, r, h.secure),
	}
	h.render(w, r, status, templates.Layout(h.title, pages.Index(page), "/static/index.js"))
}

// Login renders the login form. A bad or missing next falls back to the
// admin page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := vm.LoginPage{
		Next:      session.SafeNext(q.Get("next")),
		Failed:    q.Get("failed") != "",
		CSRFToken: csrfToken(w, r, h.secure),
	}
	h.render(w, r, http.StatusOK, templates.Layout(h.title+" | Sign in", pages.Login(page)))
}

// Admin renders the dashboard for the signed-in admin.
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFrom(r.Context())

	active, err := h.submissions.ListActive(r.Context())
	if err != nil {
		h.internalError(w, "failed to list active submissions", err)
		return
	}
	archived, err := h.submissions.ListArchived(r.Context())
	if err != nil {
		h.internalError(w, "failed to list archived submissions", err)
		return
	}
	cats, err := h.links.ListCategories(r.Context())
	if err != nil {
		h.internalError(w, "failed to list link categories", err)
		return
	}
	links, err := h.links.ListLinks(r.Context())
	if err != nil {
		h.internalError(w, "failed to list links", err)
		return
	}

	linkViews := make([]vm.Link, 0, len(links))
	for _, l := range links {
		linkViews = append(linkViews, toLinkViewModel(l))
	}

	page := vm.AdminPage{
		Active:      toSubmissionViewModels(active),
		Archived:    toSubmissionViewModels(archived),
		Categories:  toCategoryViewModels(cats),
		Links:       linkViews,
		Upgrade:     toUpgradeViewModel(h.upgrade.Enabled(), h.upgrade.Branch(), h.upgrade.Status()),
		PushEnabled: h.pushEnabled,
		Notice:      r.URL.Query().Get("notice"),
		CSRFToken:   csrfToken(w, r, h.secure),
	}
	if user != nil {
		page.Username = user.Username
	}
	h.render(w, r, http.StatusOK, templates.Layout(h.title+" | Admin", pages.Admin(page), "/static/admin.js"))
}

// Closed answers a submission made outside operating hours. It is shared
// with the API adapter.
func (h *Handler) Closed(w http.ResponseWriter, r *http.Request) {
	page := vm.ClosedPage{
		Detail: h.hours.ClosedDetail(),
		Hours:  toDayHoursViewModels(h.hours.DailyParts()),
	}
	h.render(w, r, http.StatusServiceUnavailable, templates.Layout(h.title+" | Closed", pages.Closed(page)))
}

// ServiceWorker serves the push notification worker from the site root so
// its scope covers every page.
func (h *Handler) ServiceWorker(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(StaticFS, "static/worker.js")
	if err != nil {
		h.internalError(w, "failed to read service worker", err)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// FormLogin checks the posted credentials, sets the session cookie and
// redirects to next.
func (h *Handler) FormLogin(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	next := session.SafeNext(r.PostFormValue("next"))
	_, token, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, application.ErrAuthentication) {
			h.observer.ObserveLogin("error")
			h.internalError(w, "failed to log in", err)
			return
		}
		h.observer.ObserveLogin("failure")
		q := url.Values{"failed": {"1"}, "next": {next}}
		http.Redirect(w, r, session.LoginPath+"?"+q.Encode(), http.StatusFound)
		return
	}

	h.observer.ObserveLogin("success")
	session.SetCookie(w, token, h.auth.TokenTTL(), h.secure)
	http.Redirect(w, r, next, http.StatusFound)
}

// FormLogout clears the session cookie.
func (h *Handler) FormLogout(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}
	session.ClearCookie(w, h.secure)
	http.Redirect(w, r, "/", http.StatusFound)
}

// FormSubmission stores a contact form post from the landing page.
func (h *Handler) FormSubmission(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	_, err := h.submissions.Submit(r.Context(), application.SubmissionInput{
		Email:   r.PostFormValue("email"),
		Message: r.PostFormValue("message"),
		Phone:   r.PostFormValue("phone"),
	})
	var verr *application.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, "/?sent=1", http.StatusFound)
	case errors.Is(err, application.ErrWebsiteClosed):
		h.Closed(w, r)
	case errors.As(err, &verr):
		h.renderIndex(w, r, http.StatusUnprocessableEntity, capitalize(verr.Error()))
	default:
		h.internalError(w, "failed to store submission", err)
	}
}

// FormArchive archives the posted submission id.
func (h *Handler) FormArchive(w http.ResponseWriter, r *http.Request) {
	h.formSetArchived(w, r, h.submissions.Archive, "Submission archived.")
}

// FormUnarchive restores the posted submission id.
func (h *Handler) FormUnarchive(w http.ResponseWriter, r *http.Request) {
	h.formSetArchived(w, r, h.submissions.Unarchive, "Submission restored.")
}

func (h *Handler) formSetArchived(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id int64) (model.ContactSubmission, error),
	notice string,
) {
	if !h.checkForm(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		h.redirectAdmin(w, r, "Invalid submission id.")
		return
	}
	if _, err := apply(r.Context(), id); err != nil {
		if errors.Is(err, application.ErrSubmissionNotFound) {
			h.redirectAdmin(w, r, "Submission not found.")
			return
		}
		h.internalError(w, "failed to update submission", err)
		return
	}
	h.redirectAdmin(w, r, notice)
}

// FormCreateCategory adds a link category.
func (h *Handler) FormCreateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}
	_, err := h.links.AddCategory(r.Context(), application.CategoryInput{Name: r.PostFormValue("name")})
	h.finishLinkForm(w, r, err, "Category added.")
}

// FormCreateLink adds a contact link.
func (h *Handler) FormCreateLink(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}
	_, err := h.links.AddLink(r.Context(), formLinkInput(r))
	h.finishLinkForm(w, r, err, "Link added.")
}

// FormUpdateLink replaces a contact link.
func (h *Handler) FormUpdateLink(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}
	id, err := formID(r)
	if err != nil {
		h.redirectAdmin(w, r, "Invalid link id.")
		return
	}
	_, err = h.links.UpdateLink(r.Context(), id, formLinkInput(r))
	h.finishLinkForm(w, r, err, "Link updated.")
}

func (h *Handler) finishLinkForm(w http.ResponseWriter, r *http.Request, err error, notice string) {
	var verr *application.ValidationError
	switch {
	case err == nil:
		h.redirectAdmin(w, r, notice)
	case errors.As(err, &verr):
		h.redirectAdmin(w, r, verr.Error())
	case errors.Is(err, driven.ErrCategoryExists):
		h.redirectAdmin(w, r, "Link category already exists.")
	case errors.Is(err, driven.ErrCategoryNotFound):
		h.redirectAdmin(w, r, "Link category not found.")
	case errors.Is(err, driven.ErrLinkNotFound):
		h.redirectAdmin(w, r, "Link not found.")
	default:
		h.internalError(w, "failed to update links", err)
	}
}

// FormTrigger starts an upgrade, restart or shutdown from the dashboard.
func (h *Handler) FormTrigger(action model.UpgradeAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.checkForm(w, r) {
			return
		}
		trigger := "admin"
		if user, ok := session.UserFrom(r.Context()); ok {
			trigger = "admin:" + user.Username
		}

		err := h.upgrade.Trigger(action, trigger)
		switch {
		case err == nil:
			h.redirectAdmin(w, r, capitalize(string(action))+" started.")
		case errors.Is(err, application.ErrUpgradeInProgress):
			h.redirectAdmin(w, r, "An upgrade is already in progress.")
		case errors.Is(err, application.ErrUpgradeDisabled):
			h.redirectAdmin(w, r, "Upgrades are disabled.")
		default:
			h.internalError(w, "failed to trigger "+string(action), err)
		}
	}
}

// parseForm parses a bounded form body, answering 400 itself on failure.
// Anonymous forms (login, contact) use it directly.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return false
	}
	return true
}

// checkForm parses the body and verifies the CSRF token, answering 400 or
// 403 itself when either fails.
func (h *Handler) checkForm(w http.ResponseWriter, r *http.Request) bool {
	if !h.parseForm(w, r) {
		return false
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return false
	}
	return true
}

func (h *Handler) redirectAdmin(w http.ResponseWriter, r *http.Request, notice string) {
	target := adminPath
	if notice != "" {
		target += "?" + url.Values{"notice": {notice}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// render buffers the component so a render failure can still become a 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		h.internalError(w, "failed to render page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

const maxFormBytes = 1 << 20

func formID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func formLinkInput(r *http.Request) application.LinkInput {
	catID, _ := strconv.ParseInt(r.PostFormValue("category_id"), 10, 64)
	return application.LinkInput{
		Name:       r.PostFormValue("name"),
		Href:       r.PostFormValue("href"),
		CategoryID: catID,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
