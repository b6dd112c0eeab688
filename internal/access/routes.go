package access

import (
	"strings"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// Route is an entry of the portal route table.
type Route struct {
	// Pattern uses chi syntax; "{name}" matches one path segment.
	Pattern string

	// Protected routes go through Decide.
	Protected bool

	// Required lists the roles allowed on a protected route.
	// Empty means any signed-in, non-banned actor.
	Required []domain.Role
}

func public(pattern string) Route {
	return Route{Pattern: pattern}
}

func protected(pattern string, roles ...domain.Role) Route {
	return Route{Pattern: pattern, Protected: true, Required: roles}
}

// Routes is the portal route table.
var Routes = []Route{
	// Public pages
	public("/"),
	public("/about"),
	public("/guidelines"),
	public("/editorial-board"),
	public("/ethics-policy"),
	public("/archives"),
	public("/contact"),

	// Sign-in
	public("/auth"),
	public("/auth/login"),
	public("/auth/register"),
	public("/login"),
	public("/logout"),
	public(AdminLoginPath),
	public(ProfessorLoginPath),

	// Authors
	protected("/submit-paper", domain.RoleUser),
	protected("/submit-paper/upload-url", domain.RoleUser),
	protected("/submit-paper/{id}", domain.RoleUser),
	protected("/submit-paper/{id}/manuscript", domain.RoleUser),
	protected("/account", domain.RoleUser),

	// Administration
	protected(AdminHome, domain.RoleAdmin),
	protected("/secure/admin/users", domain.RoleAdmin),
	protected("/secure/admin/users/{id}/ban", domain.RoleAdmin),
	protected("/secure/admin/users/{id}/unban", domain.RoleAdmin),
	protected("/secure/admin/professors", domain.RoleAdmin),
	protected("/secure/admin/papers", domain.RoleAdmin),
	protected("/secure/admin/papers/export", domain.RoleAdmin),
	protected("/secure/admin/papers/{id}/assign", domain.RoleAdmin),
	protected("/secure/admin/papers/{id}/status", domain.RoleAdmin),

	// Review
	protected(ProfessorHome, domain.RoleProfessor),
	protected("/secure/professor/papers", domain.RoleProfessor),
	protected("/secure/professor/papers/{id}/status", domain.RoleProfessor),

	// Operations
	public("/health"),
	public("/metrics"),
}

// Lookup finds the route matching path. Literal routes win over patterns.
func Lookup(path string) (Route, bool) {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	var (
		best      Route
		found     bool
		bestScore = -1
	)
	for _, r := range Routes {
		score, ok := match(r.Pattern, path)
		if ok && score > bestScore {
			best, found, bestScore = r, true, score
		}
	}
	return best, found
}

// match reports whether path fits pattern and how many segments matched literally.
func match(pattern, path string) (int, bool) {
	if pattern == path {
		return len(pattern) + 1, true
	}

	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return 0, false
	}

	literal := 0
	for i := range ps {
		if strings.HasPrefix(ps[i], "{") && strings.HasSuffix(ps[i], "}") {
			if xs[i] == "" {
				return 0, false
			}
			continue
		}
		if ps[i] != xs[i] {
			return 0, false
		}
		literal++
	}
	return literal, true
}
