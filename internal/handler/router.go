package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/jmrh-portal/internal/access"
	"github.com/prn-tf/jmrh-portal/internal/auth"
)

// Routes returns the main HTTP handler.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(h.logger))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(h.logRequest))
	r.Use(middleware.Recoverer)

	authConfig := auth.DefaultConfig()
	authConfig.CookieSecure = h.secure
	authConfig.SkipPaths = append(authConfig.SkipPaths, h.metricsPath)
	r.Use(auth.Middleware(h.tokens, h.state, authConfig))

	// Operations (no guard)
	r.Get("/health", h.handleHealth)
	if h.gatherer != nil {
		r.Handle(h.metricsPath, promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.guard)

		// Public pages
		r.Get("/", h.handleHome)
		r.Get("/about", h.handleStatic("about.html", "About"))
		r.Get("/guidelines", h.handleStatic("guidelines.html", "Author guidelines"))
		r.Get("/ethics-policy", h.handleStatic("ethics.html", "Ethics policy"))
		r.Get("/contact", h.handleStatic("contact.html", "Contact"))
		r.Get("/editorial-board", h.handleEditorialBoard)
		r.Get("/archives", h.handleArchives)

		// Sign-in
		r.Get(access.AuthPath, h.handleAuthPage)
		r.Get("/login", h.handleLoginAlias)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)
		r.Get(access.AdminLoginPath, h.handlePortalLoginPage(portalAdmin))
		r.Post(access.AdminLoginPath, h.handlePortalLogin(portalAdmin))
		r.Get(access.ProfessorLoginPath, h.handlePortalLoginPage(portalProfessor))
		r.Post(access.ProfessorLoginPath, h.handlePortalLogin(portalProfessor))

		// Authors
		r.Get("/submit-paper", h.handleSubmitPage)
		r.Post("/submit-paper", h.handleSubmit)
		r.Post("/submit-paper/upload-url", h.handleUploadURL)
		r.Get("/submit-paper/{id}", h.handlePaperStatus)
		r.Get("/submit-paper/{id}/manuscript", h.handleManuscript)
		r.Get("/account", h.handleAccountPage)
		r.Post("/account", h.handleAccount)

		// Administration
		r.Get(access.AdminHome, h.handleAdminDashboard)
		r.Get("/secure/admin/users", h.handleUserList)
		r.Post("/secure/admin/users/{id}/ban", h.handleBan)
		r.Post("/secure/admin/users/{id}/unban", h.handleUnban)
		r.Get("/secure/admin/professors", h.handleProfessorList)
		r.Post("/secure/admin/professors", h.handleCreateProfessor)
		r.Get("/secure/admin/papers", h.handleAdminPapers)
		r.Get("/secure/admin/papers/export", h.handleExport)
		r.Post("/secure/admin/papers/{id}/assign", h.handleAssign)
		r.Post("/secure/admin/papers/{id}/status", h.handleAdminStatus)

		// Review
		r.Get(access.ProfessorHome, h.handleProfessorDashboard)
		r.Get("/secure/professor/papers", h.handleProfessorPapers)
		r.Post("/secure/professor/papers/{id}/status", h.handleProfessorStatus)
	})

	// Navigation failures go home.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, access.HomePath, http.StatusFound)
	})

	return r
}

// requestIDField adds the chi request id to the request logger.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
			w.Header().Set("X-Request-Id", id)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequest(r *http.Request, status, size int, duration time.Duration) {
	h.metrics.RecordHTTPRequest(r.Method, status, duration)

	event := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
