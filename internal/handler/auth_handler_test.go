package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/access"
	"github.com/prn-tf/jmrh-portal/internal/auth"
)

func TestRegisterThenLogin(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, request{method: http.MethodPost, path: "/auth/register", form: url.Values{
		"name":     {"Ada Lovelace"},
		"email":    {"ada@example.org"},
		"password": {"password123"},
		"from":     {"/submit-paper"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth?from=%2Fsubmit-paper", w.Header().Get("Location"))
	flash := responseCookie(w, flashCookieName)
	require.NotNil(t, flash)

	// The flash shows once on the sign-in page.
	w = ts.do(t, request{path: "/auth?from=%2Fsubmit-paper", cookie: flash})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Account created")
	assert.Contains(t, w.Body.String(), `value="/submit-paper"`)

	w = ts.do(t, request{method: http.MethodPost, path: "/auth/login", form: url.Values{
		"email":    {"ADA@example.org"},
		"password": {"password123"},
		"from":     {"/submit-paper"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/submit-paper", w.Header().Get("Location"))
	session := responseCookie(w, auth.SessionCookieName)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = ts.do(t, request{path: "/submit-paper", cookie: session})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sign out Ada Lovelace")
}

func TestRegister_Errors(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ts.author(t, "ada@example.org")

	tests := []struct {
		name   string
		form   url.Values
		status int
		body   string
	}{
		{
			name:   "duplicate email",
			form:   url.Values{"name": {"Other"}, "email": {"Ada@Example.org"}, "password": {"password123"}},
			status: http.StatusConflict,
			body:   "already exists",
		},
		{
			name:   "short password",
			form:   url.Values{"name": {"Other"}, "email": {"other@example.org"}, "password": {"short"}},
			status: http.StatusBadRequest,
			body:   "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, request{method: http.MethodPost, path: "/auth/register", form: tt.form})
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	admin := ts.admin(t)
	ts.author(t, "ada@example.org")
	ts.professor(t, admin, "noether@example.org")

	tests := []struct {
		name     string
		path     string
		form     url.Values
		status   int
		location string
	}{
		{
			name:     "admin at the general page lands on the console",
			path:     "/auth/login",
			form:     url.Values{"email": {"chief@jmrh.org"}, "password": {"chief-password"}},
			status:   http.StatusSeeOther,
			location: access.AdminHome,
		},
		{
			name:     "professor portal",
			path:     access.ProfessorLoginPath,
			form:     url.Values{"email": {"noether@example.org"}, "password": {"password123"}, "from": {"/secure/professor/papers"}},
			status:   http.StatusSeeOther,
			location: "/secure/professor/papers",
		},
		{
			name:     "foreign return location is ignored",
			path:     "/auth/login",
			form:     url.Values{"email": {"ada@example.org"}, "password": {"password123"}, "from": {"https://evil.example/"}},
			status:   http.StatusSeeOther,
			location: "/",
		},
		{
			name:   "wrong password",
			path:   "/auth/login",
			form:   url.Values{"email": {"ada@example.org"}, "password": {"nope-nope"}},
			status: http.StatusUnauthorized,
		},
		{
			name:   "author at the admin portal",
			path:   access.AdminLoginPath,
			form:   url.Values{"email": {"ada@example.org"}, "password": {"password123"}},
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, request{method: http.MethodPost, path: tt.path, form: tt.form})
			assert.Equal(t, tt.status, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
				assert.NotNil(t, responseCookie(w, auth.SessionCookieName))
			} else {
				assert.Nil(t, responseCookie(w, auth.SessionCookieName))
			}
		})
	}
}

func TestLogin_BannedAccountSeesNotice(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	admin := ts.admin(t)
	author := ts.author(t, "ada@example.org")
	_, err := ts.accounts.Ban(context.Background(), admin, author.ID)
	require.NoError(t, err)

	w := ts.do(t, request{method: http.MethodPost, path: "/auth/login", form: url.Values{
		"email": {"ada@example.org"}, "password": {"password123"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = ts.do(t, request{path: "/submit-paper", cookie: responseCookie(w, auth.SessionCookieName)})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "banned")
}

func TestLoginAliasAndSignedInAuthPage(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	admin := ts.admin(t)

	w := ts.do(t, request{path: "/login?from=%2Faccount"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth?from=%2Faccount", w.Header().Get("Location"))

	w = ts.do(t, request{path: access.AuthPath, actor: admin})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, access.AdminHome, w.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	author := ts.author(t, "ada@example.org")

	w := ts.do(t, request{method: http.MethodPost, path: "/logout", actor: author})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cleared := responseCookie(w, auth.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestStaleSessionIsCleared(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, request{path: "/about", cookie: &http.Cookie{Name: auth.SessionCookieName, Value: "garbage"}})

	assert.Equal(t, http.StatusOK, w.Code)
	cleared := responseCookie(w, auth.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}
