package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

func user(role domain.Role, status domain.UserStatus) *domain.User {
	return &domain.User{ID: "u-" + string(role), Name: "Someone", Role: role, Status: status}
}

func TestDecide(t *testing.T) {
	admin := user(domain.RoleAdmin, domain.UserActive)
	prof := user(domain.RoleProfessor, domain.UserActive)
	bannedProf := user(domain.RoleProfessor, domain.UserBanned)
	author := user(domain.RoleUser, domain.UserActive)

	tests := []struct {
		name string
		req  Request
		want Decision
	}{
		{
			name: "loading wins over everything",
			req:  Request{Loading: true, Actor: bannedProf, Path: AdminHome, Required: []domain.Role{domain.RoleAdmin}},
			want: Decision{Outcome: OutcomeLoading},
		},
		{
			name: "anonymous at admin dashboard goes to admin login",
			req:  Request{Path: AdminHome, Required: []domain.Role{domain.RoleAdmin}},
			want: Decision{Outcome: OutcomeLogin, Location: "/secure/admin/login?from=%2Fsecure%2Fadmin%2Fdashboard"},
		},
		{
			name: "anonymous at professor route goes to professor login",
			req:  Request{Path: "/secure/professor/papers", Required: []domain.Role{domain.RoleProfessor}},
			want: Decision{Outcome: OutcomeLogin, Location: "/secure/professor/login?from=%2Fsecure%2Fprofessor%2Fpapers"},
		},
		{
			name: "anonymous at author route keeps the query",
			req:  Request{Path: "/submit-paper", RawQuery: "draft=1", Required: []domain.Role{domain.RoleUser}},
			want: Decision{Outcome: OutcomeLogin, Location: "/auth?from=%2Fsubmit-paper%3Fdraft%3D1"},
		},
		{
			name: "user at admin route goes home",
			req:  Request{Actor: author, Path: AdminHome, Required: []domain.Role{domain.RoleAdmin}},
			want: Decision{Outcome: OutcomeHome, Location: "/"},
		},
		{
			name: "admin at professor route goes to admin dashboard",
			req:  Request{Actor: admin, Path: ProfessorHome, Required: []domain.Role{domain.RoleProfessor}},
			want: Decision{Outcome: OutcomeHome, Location: AdminHome},
		},
		{
			name: "professor at author route goes to professor dashboard",
			req:  Request{Actor: prof, Path: "/submit-paper", Required: []domain.Role{domain.RoleUser}},
			want: Decision{Outcome: OutcomeHome, Location: ProfessorHome},
		},
		{
			name: "banned professor at professor route sees banned notice",
			req:  Request{Actor: bannedProf, Path: ProfessorHome, Required: []domain.Role{domain.RoleProfessor}},
			want: Decision{Outcome: OutcomeBanned},
		},
		{
			name: "banned beats wrong role",
			req:  Request{Actor: bannedProf, Path: AdminHome, Required: []domain.Role{domain.RoleAdmin}},
			want: Decision{Outcome: OutcomeBanned},
		},
		{
			name: "matching role renders",
			req:  Request{Actor: admin, Path: AdminHome, Required: []domain.Role{domain.RoleAdmin}},
			want: Decision{Outcome: OutcomeRender},
		},
		{
			name: "no required roles renders for any actor",
			req:  Request{Actor: author, Path: "/anything"},
			want: Decision{Outcome: OutcomeRender},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.req))
		})
	}
}

func TestHome(t *testing.T) {
	assert.Equal(t, "/secure/admin/dashboard", Home(domain.RoleAdmin))
	assert.Equal(t, "/secure/professor/dashboard", Home(domain.RoleProfessor))
	assert.Equal(t, "/", Home(domain.RoleUser))
}

func TestLoginPath(t *testing.T) {
	assert.Equal(t, AdminLoginPath, LoginPath("/secure/admin/users/42/ban"))
	assert.Equal(t, ProfessorLoginPath, LoginPath("/secure/professor"))
	assert.Equal(t, AuthPath, LoginPath("/secure/administrator"))
	assert.Equal(t, AuthPath, LoginPath("/account"))
}

func TestSafeReturn(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"/secure/admin/dashboard", "/secure/admin/dashboard"},
		{"/submit-paper?draft=1", "/submit-paper?draft=1"},
		{"", ""},
		{"https://evil.example/", ""},
		{"//evil.example/", ""},
		{"/\\evil.example", ""},
		{"relative/path", ""},
		{"javascript:alert(1)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeReturn(tt.from))
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		path      string
		pattern   string
		protected bool
		roles     []domain.Role
	}{
		{"/", "/", false, nil},
		{"/about/", "/about", false, nil},
		{"/submit-paper/upload-url", "/submit-paper/upload-url", true, []domain.Role{domain.RoleUser}},
		{"/submit-paper/abc", "/submit-paper/{id}", true, []domain.Role{domain.RoleUser}},
		{"/secure/admin/papers/export", "/secure/admin/papers/export", true, []domain.Role{domain.RoleAdmin}},
		{"/secure/admin/users/u1/ban", "/secure/admin/users/{id}/ban", true, []domain.Role{domain.RoleAdmin}},
		{"/secure/professor/papers/p1/status", "/secure/professor/papers/{id}/status", true, []domain.Role{domain.RoleProfessor}},
		{"/secure/admin/login", "/secure/admin/login", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, ok := Lookup(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.pattern, r.Pattern)
			assert.Equal(t, tt.protected, r.Protected)
			assert.Equal(t, tt.roles, r.Required)
		})
	}

	_, ok := Lookup("/no/such/page")
	assert.False(t, ok)
}
