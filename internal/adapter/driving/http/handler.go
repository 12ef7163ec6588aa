// Package httphandler is the JSON API driving adapter: authentication,
// submissions, links, push registration, the upgrade controls and the
// source-control webhook.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Outcome label values reported to the Observer.
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeError    = "error"
	outcomeAccepted = "accepted"
	outcomeIgnored  = "ignored"
	outcomeRejected = "rejected"
)

// Observer is told about login attempts and webhook deliveries.
type Observer interface {
	ObserveLogin(outcome string)
	ObserveWebhook(kind model.EventKind, outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveLogin(string)                    {}
func (noopObserver) ObserveWebhook(model.EventKind, string) {}

// Deps are the services behind the API. Revisions, Push and ClosedPage are
// optional.
type Deps struct {
	Auth        *application.Authenticator
	Submissions *application.SubmissionService
	Links       *application.LinkService
	Hours       *application.HoursService
	Upgrade     *application.UpgradeService

	Revisions      driven.RevisionSource
	Push           driven.PushSubscriptionStore
	VAPIDPublicKey string

	// ClosedPage answers non-JSON clients outside operating hours.
	ClosedPage http.Handler
	Observer   Observer
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	auth        *application.Authenticator
	submissions *application.SubmissionService
	links       *application.LinkService
	hours       *application.HoursService
	upgrade     *application.UpgradeService
	revisions   driven.RevisionSource
	push        driven.PushSubscriptionStore
	vapidKey    string
	closedPage  http.Handler
	observer    Observer
	guard       *session.Guard
	logger      *slog.Logger
	now         func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(d Deps, guard *session.Guard, logger *slog.Logger) *Handler {
	obs := d.Observer
	if obs == nil {
		obs = noopObserver{}
	}
	return &Handler{
		auth:        d.Auth,
		submissions: d.Submissions,
		links:       d.Links,
		hours:       d.Hours,
		upgrade:     d.Upgrade,
		revisions:   d.Revisions,
		push:        d.Push,
		vapidKey:    d.VAPIDPublicKey,
		closedPage:  d.ClosedPage,
		observer:    obs,
		guard:       guard,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterAPIRoutes registers all JSON API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	admin := h.guard.RequireFunc

	mux.HandleFunc("POST /api/token", h.Token)
	mux.HandleFunc("GET /api/health", h.Health)

	mux.HandleFunc("POST /api/submissions", h.CreateSubmission)
	mux.Handle("GET /api/submissions", admin(h.ListSubmissions))
	mux.Handle("POST /api/submissions/archive", admin(h.ArchiveSubmission))
	mux.Handle("POST /api/submissions/unarchive", admin(h.UnarchiveSubmission))

	mux.HandleFunc("GET /api/links", h.ListLinks)
	mux.Handle("GET /api/links/categories", admin(h.ListCategories))
	mux.Handle("POST /api/links/categories", admin(h.CreateCategory))
	mux.Handle("POST /api/links", admin(h.CreateLink))
	mux.Handle("POST /api/links/update", admin(h.UpdateLink))

	mux.HandleFunc("GET /api/vapid-public-key", h.VAPIDPublicKey)
	mux.Handle("POST /api/register-push-subscription", admin(h.RegisterPushSubscription))

	mux.Handle("POST /api/upgrade", admin(h.trigger(model.UpgradeActionUpgrade)))
	mux.Handle("POST /api/restart", admin(h.trigger(model.UpgradeActionRestart)))
	mux.Handle("POST /api/shutdown", admin(h.trigger(model.UpgradeActionShutdown)))
	mux.Handle("GET /api/upgrade/status", admin(h.UpgradeStatus))
	mux.HandleFunc("POST /api/webhook/{appname}", h.Webhook)
}

// Token exchanges form credentials for a bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	_, token, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, application.ErrAuthentication) {
			h.observer.ObserveLogin(outcomeFailure)
			writeError(w, http.StatusBadRequest, "Authentication failed.")
			return
		}
		h.observer.ObserveLogin(outcomeError)
		h.logger.Error("failed to log in", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.observer.ObserveLogin(outcomeSuccess)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Health reports liveness. It is never gated by operating hours.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// CreateSubmission stores a public contact submission.
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.submissions.Submit(r.Context(), application.SubmissionInput{
		Email:   req.Email,
		Message: req.Message,
		Phone:   req.Phone,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "failed to store submission")
		return
	}

	writeJSON(w, http.StatusCreated, toSubmissionResponse(sub))
}

// ListSubmissions returns submissions, filtered by ?archived=true|false.
// Without the parameter every submission is returned.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	var (
		subs []model.ContactSubmission
		err  error
	)
	switch strings.ToLower(r.URL.Query().Get("archived")) {
	case "true", "1":
		subs, err = h.submissions.ListArchived(r.Context())
	case "false", "0":
		subs, err = h.submissions.ListActive(r.Context())
	default:
		subs, err = h.submissions.ListAll(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list submissions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSubmissionResponses(subs))
}

// ArchiveSubmission hides a submission from the active list.
func (h *Handler) ArchiveSubmission(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, h.submissions.Archive)
}

// UnarchiveSubmission restores an archived submission.
func (h *Handler) UnarchiveSubmission(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, h.submissions.Unarchive)
}

func (h *Handler) setArchived(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id int64) (model.ContactSubmission, error),
) {
	id, err := readID(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	sub, err := apply(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to update submission")
		return
	}

	writeJSON(w, http.StatusOK, toSubmissionResponse(sub))
}

// ListLinks returns every stored contact link.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.ListLinks(r.Context())
	if err != nil {
		h.logger.Error("failed to list links", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		resp = append(resp, toLinkResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCategories returns every link category.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.links.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("failed to list link categories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CategoryResponse, 0, len(cats))
	for _, c := range cats {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory adds a link category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.links.AddCategory(r.Context(), application.CategoryInput{Name: req.Name})
	if err != nil {
		h.writeServiceError(w, r, err, "failed to add link category")
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(cat))
}

// CreateLink adds a contact link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.links.AddLink(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "failed to add link")
		return
	}

	writeJSON(w, http.StatusCreated, toLinkResponse(link))
}

// UpdateLink replaces the name, href and category of a link.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeBody(w, r, &req); err != nil || req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.links.UpdateLink(r.Context(), req.ID, req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "failed to update link")
		return
	}

	writeJSON(w, http.StatusOK, toLinkResponse(link))
}

func (l linkRequest) input() application.LinkInput {
	return application.LinkInput{Name: l.Name, Href: l.Href, CategoryID: l.CategoryID}
}

// writeServiceError maps application and store errors onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, application.ErrWebsiteClosed):
		h.writeClosed(w, r)
	case errors.Is(err, application.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, "submission not found")
	case errors.Is(err, driven.ErrLinkNotFound):
		writeError(w, http.StatusNotFound, "link not found")
	case errors.Is(err, driven.ErrCategoryNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "link category not found",
			Fields: map[string]string{"category_id": "category_id does not exist"},
		})
	case errors.Is(err, driven.ErrCategoryExists):
		writeError(w, http.StatusConflict, "link category already exists")
	default:
		h.logger.Error(logMsg, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeClosed(w http.ResponseWriter, r *http.Request) {
	if h.closedPage != nil && !session.WantsJSON(r) {
		h.closedPage.ServeHTTP(w, r)
		return
	}
	detail := "This website is currently closed."
	if h.hours != nil {
		detail = h.hours.ClosedDetail()
	}
	writeJSON(w, http.StatusServiceUnavailable, ClosedResponse{Status: "closed", Detail: detail})
}
