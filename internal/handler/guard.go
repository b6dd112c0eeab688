package handler

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/jmrh-portal/internal/access"
	"github.com/prn-tf/jmrh-portal/internal/auth"
)

// guard applies the access policy to every portal route.
func (h *Handler) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := access.Lookup(r.URL.Path)
		if !ok {
			http.Redirect(w, r, access.HomePath, http.StatusFound)
			return
		}

		loading := !h.state.Ready()
		if !route.Protected {
			// Public pages render from whatever is loaded; writes wait.
			if loading && !isRead(r) {
				h.renderLoading(w, r)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		decision := access.Decide(access.Request{
			Loading:  loading,
			Actor:    auth.ActorFromContext(r.Context()),
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Required: route.Required,
		})
		h.metrics.RecordDecision(string(decision.Outcome))

		switch decision.Outcome {
		case access.OutcomeLoading:
			h.renderLoading(w, r)
		case access.OutcomeLogin:
			location := decision.Location
			if !isRead(r) {
				// A form target is not a page to come back to.
				location = access.LoginPath(r.URL.Path)
			}
			http.Redirect(w, r, location, http.StatusFound)
		case access.OutcomeBanned:
			hlog.FromRequest(r).Info().Str("path", r.URL.Path).Msg("banned account refused")
			h.render(w, r, http.StatusForbidden, "banned.html", h.page(w, r, "Account suspended"))
		case access.OutcomeHome:
			http.Redirect(w, r, decision.Location, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (h *Handler) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	h.render(w, r, http.StatusServiceUnavailable, "loading.html", PageData{Title: "Loading - JMRH"})
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}
