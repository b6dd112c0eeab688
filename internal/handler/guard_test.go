package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/access"
	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
)

func TestGuard_MatchesDecide(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	admin := ts.admin(t)
	author := ts.author(t, "ada@example.org")
	prof := ts.professor(t, admin, "noether@example.org")
	banned := ts.professor(t, admin, "banned@example.org")
	_, err := ts.accounts.Ban(context.Background(), admin, banned.ID)
	require.NoError(t, err)
	bannedNow, ok := ts.store.UserByID(banned.ID)
	require.True(t, ok)

	actors := map[string]*domain.User{
		"anonymous":        nil,
		"author":           author,
		"professor":        prof,
		"banned professor": &bannedNow,
		"admin":            admin,
	}
	paths := []string{
		access.AdminHome,
		"/secure/admin/users",
		access.ProfessorHome,
		"/secure/professor/papers",
		"/submit-paper",
		"/account?tab=password",
	}

	for name, actor := range actors {
		for _, target := range paths {
			t.Run(name+" "+target, func(t *testing.T) {
				w := ts.do(t, request{path: target, actor: actor})

				path, rawQuery, _ := strings.Cut(target, "?")
				route, ok := access.Lookup(path)
				require.True(t, ok)

				want := access.Decide(access.Request{
					Actor:    actor,
					Path:     path,
					RawQuery: rawQuery,
					Required: route.Required,
				})

				switch want.Outcome {
				case access.OutcomeLogin, access.OutcomeHome:
					assert.Equal(t, http.StatusFound, w.Code)
					assert.Equal(t, want.Location, w.Header().Get("Location"))
				case access.OutcomeBanned:
					assert.Equal(t, http.StatusForbidden, w.Code)
					assert.Contains(t, w.Body.String(), "Account suspended")
				case access.OutcomeRender:
					assert.Equal(t, http.StatusOK, w.Code)
				default:
					t.Fatalf("unexpected outcome %s", want.Outcome)
				}
			})
		}
	}
}

func TestGuard_AnonymousAdminDashboard(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, request{path: access.AdminHome})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/secure/admin/login?from=%2Fsecure%2Fadmin%2Fdashboard", w.Header().Get("Location"))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.AccessDecisions.WithLabelValues("login")))
}

func TestGuard_AnonymousFormPost(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, request{method: http.MethodPost, path: "/secure/admin/users/u1/ban"})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, access.AdminLoginPath, w.Header().Get("Location"))
}

func TestGuard_Loading(t *testing.T) {
	ts := newTestServer(t, serverOptions{skipLoad: true})

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "protected page waits", method: http.MethodGet, path: access.AdminHome, status: http.StatusServiceUnavailable},
		{name: "public page renders", method: http.MethodGet, path: "/about", status: http.StatusOK},
		{name: "sign-in waits", method: http.MethodPost, path: "/auth/login", status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, request{method: tt.method, path: tt.path})
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusServiceUnavailable {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
				assert.Contains(t, w.Body.String(), "starting up")
			}
		})
	}
}

func TestGuard_LoadingKeepsSession(t *testing.T) {
	ts := newTestServer(t, serverOptions{skipLoad: true})
	author := &domain.User{ID: "author-1", Name: "Ada Lovelace", Role: domain.RoleUser, Status: domain.UserActive}

	w := ts.do(t, request{path: "/submit-paper", actor: author})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Nil(t, responseCookie(w, auth.SessionCookieName), "session cookie must survive the load window")
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	for _, path := range []string{"/no/such/page", "/secure/admin/nothing"} {
		w := ts.do(t, request{path: path})
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/", w.Header().Get("Location"), path)
	}
}
