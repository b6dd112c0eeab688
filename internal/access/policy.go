// Package access decides what a visitor sees on a portal route.
//
// Decide is a pure function of the loading flag, the actor and the route's
// required roles. The HTTP guard and the tests both go through it.
package access

import (
	"net/url"
	"strings"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// Well-known paths.
const (
	HomePath           = "/"
	AuthPath           = "/auth"
	AdminLoginPath     = "/secure/admin/login"
	ProfessorLoginPath = "/secure/professor/login"
	AdminHome          = "/secure/admin/dashboard"
	ProfessorHome      = "/secure/professor/dashboard"

	adminNamespace     = "/secure/admin"
	professorNamespace = "/secure/professor"

	// FromParam carries the originally requested location through sign-in.
	FromParam = "from"
)

// Outcome is the result of a guard evaluation.
type Outcome string

const (
	// OutcomeLoading shows an interstitial until the store has loaded.
	OutcomeLoading Outcome = "loading"

	// OutcomeLogin redirects to the sign-in page for the route's namespace.
	OutcomeLogin Outcome = "login"

	// OutcomeBanned shows the banned notice.
	OutcomeBanned Outcome = "banned"

	// OutcomeHome redirects the actor to their role's home.
	OutcomeHome Outcome = "home"

	// OutcomeRender shows the requested view.
	OutcomeRender Outcome = "render"
)

// Request is the input to Decide.
type Request struct {
	Loading  bool
	Actor    *domain.User
	Path     string
	RawQuery string
	Required []domain.Role
}

// Decision is the output of Decide. Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide evaluates the guard rules in order: loading, no actor, banned,
// wrong role, render.
func Decide(r Request) Decision {
	if r.Loading {
		return Decision{Outcome: OutcomeLoading}
	}

	if r.Actor == nil {
		return Decision{Outcome: OutcomeLogin, Location: LoginLocation(r.Path, r.RawQuery)}
	}

	if r.Actor.IsBanned() {
		return Decision{Outcome: OutcomeBanned}
	}

	if len(r.Required) > 0 && !r.Actor.HasRole(r.Required...) {
		return Decision{Outcome: OutcomeHome, Location: Home(r.Actor.Role)}
	}

	return Decision{Outcome: OutcomeRender}
}

// LoginPath returns the sign-in page responsible for path.
func LoginPath(path string) string {
	switch {
	case inNamespace(path, adminNamespace):
		return AdminLoginPath
	case inNamespace(path, professorNamespace):
		return ProfessorLoginPath
	}
	return AuthPath
}

// LoginLocation returns the sign-in redirect for a request to path?rawQuery.
func LoginLocation(path, rawQuery string) string {
	from := path
	if rawQuery != "" {
		from += "?" + rawQuery
	}
	return LoginPath(path) + "?" + url.Values{FromParam: {from}}.Encode()
}

// Home returns the landing page for role.
func Home(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return AdminHome
	case domain.RoleProfessor:
		return ProfessorHome
	}
	return HomePath
}

// SafeReturn returns from when it is a local absolute path, else "".
// It keeps post-login redirects on this site.
func SafeReturn(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.ContainsAny(from, "\\\r\n") {
		return ""
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return from
}

func inNamespace(path, ns string) bool {
	return path == ns || strings.HasPrefix(path, ns+"/")
}
