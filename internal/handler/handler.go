// Package handler provides the HTTP layer of the JMRH portal: the public
// pages, sign-in, the author area and the admin and professor consoles.
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
	"github.com/prn-tf/jmrh-portal/internal/repository"
	"github.com/prn-tf/jmrh-portal/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

// StateReader is the read side of the session store the HTTP layer needs.
type StateReader interface {
	Ready() bool
	UserByID(id string) (domain.User, bool)
}

// Handler serves the portal.
type Handler struct {
	accounts    *service.AccountService
	submissions *service.SubmissionService
	reviews     *service.ReviewService
	export      *service.ExportService
	tokens      *auth.TokenManager
	state       StateReader
	health      repository.DatabaseHealth
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	metricsPath string
	secure      bool
	templates   map[string]*template.Template
	now         func() time.Time
	logger      zerolog.Logger
}

// Config contains the dependencies of the HTTP layer.
type Config struct {
	Accounts    *service.AccountService
	Submissions *service.SubmissionService
	Reviews     *service.ReviewService
	Export      *service.ExportService
	Tokens      *auth.TokenManager
	State       StateReader

	// Health is pinged by /health. Nil reports the database as healthy.
	Health repository.DatabaseHealth

	Metrics *metrics.Metrics

	// Gatherer backs the metrics endpoint. Nil disables it.
	Gatherer    prometheus.Gatherer
	MetricsPath string

	// CookieSecure marks session and flash cookies Secure.
	CookieSecure bool

	Logger zerolog.Logger
}

// New creates a new Handler.
func New(cfg Config) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Handler{
		accounts:    cfg.Accounts,
		submissions: cfg.Submissions,
		reviews:     cfg.Reviews,
		export:      cfg.Export,
		tokens:      cfg.Tokens,
		state:       cfg.State,
		health:      cfg.Health,
		metrics:     cfg.Metrics,
		gatherer:    cfg.Gatherer,
		metricsPath: metricsPath,
		secure:      cfg.CookieSecure,
		templates:   tmpl,
		now:         time.Now,
		logger:      cfg.Logger.With().Str("component", "http").Logger(),
	}, nil
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
}

// parseTemplates builds one template set per page, each combined with the layout.
func parseTemplates() (map[string]*template.Template, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		if page == layoutTemplate {
			continue
		}
		name := path.Base(page)
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, layoutTemplate, page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// =============================================================================
// Template Data Structs
// =============================================================================

// PageData contains common page data.
type PageData struct {
	Title string
	Actor *domain.User
	Flash *Flash
	Error string
}

// page returns the common data for a page and consumes the pending flash.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title: title + " - JMRH",
		Actor: auth.ActorFromContext(r.Context()),
		Flash: h.takeFlash(w, r),
	}
}

// =============================================================================
// Rendering
// =============================================================================

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	tmpl, ok := h.templates[name]
	if !ok {
		hlog.FromRequest(r).Error().Str("template", name).Msg("unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect finishes a form post with a flash message.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, location string, flash Flash) {
	h.setFlash(w, flash)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// failure logs unexpected errors and returns the message shown to the visitor.
func (h *Handler) failure(r *http.Request, err error) string {
	if service.IsUserError(err) {
		return userMessage(err)
	}
	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	return "Something went wrong. Please try again."
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrPaperNotFound):
		return "That paper could not be found."
	case errors.Is(err, domain.ErrUserNotFound):
		return "That account could not be found."
	case errors.Is(err, domain.ErrConflict):
		return "An account with that email already exists."
	case errors.Is(err, domain.ErrForbidden):
		return "You are not allowed to do that."
	}
	return err.Error()
}

// statusFor maps a service error to the status of a re-rendered form.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrSamePassword),
		errors.Is(err, service.ErrForeignManuscript), errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrWrongPortal):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotAuthor):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPaperNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case service.IsUserError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
