package web

import (
	"io/fs"
	"net/http"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
// Pages and form posts behind the admin login go through the guard.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	admin := h.guard.RequireFunc

	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	mux.HandleFunc("GET /worker.js", h.ServiceWorker)

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /index.html", h.Index)
	mux.HandleFunc("GET /login.html", h.Login)
	mux.Handle("GET /admin.html", admin(h.Admin))

	// Form posts.
	mux.HandleFunc("POST /form/login", h.FormLogin)
	mux.HandleFunc("POST /form/logout", h.FormLogout)
	mux.HandleFunc("POST /form/submissions", h.FormSubmission)
	mux.Handle("POST /form/submissions/archive", admin(h.FormArchive))
	mux.Handle("POST /form/submissions/unarchive", admin(h.FormUnarchive))
	mux.Handle("POST /form/links/categories", admin(h.FormCreateCategory))
	mux.Handle("POST /form/links", admin(h.FormCreateLink))
	mux.Handle("POST /form/links/update", admin(h.FormUpdateLink))
	mux.Handle("POST /form/upgrade", admin(h.FormTrigger(model.UpgradeActionUpgrade)))
	mux.Handle("POST /form/restart", admin(h.FormTrigger(model.UpgradeActionRestart)))
	mux.Handle("POST /form/shutdown", admin(h.FormTrigger(model.UpgradeActionShutdown)))
}
