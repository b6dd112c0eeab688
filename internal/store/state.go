// Package store holds the portal's users, papers and single-session actor.
//
// State is an immutable value: every mutation returns a new State and leaves
// the receiver untouched. Store wraps the current State, persists it after
// every mutation and reports what changed.
package store

import (
	"fmt"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
)

// State is the full persisted portal state.
type State struct {
	Users       []domain.User  `json:"users"`
	Papers      []domain.Paper `json:"papers"`
	CurrentUser *domain.User   `json:"currentUser"`
}

// Empty returns a state with no users, no papers and no actor.
func Empty() State {
	return State{
		Users:  []domain.User{},
		Papers: []domain.Paper{},
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s State) Clone() State {
	out := State{
		Users:  make([]domain.User, len(s.Users)),
		Papers: make([]domain.Paper, len(s.Papers)),
	}
	copy(out.Users, s.Users)
	copy(out.Papers, s.Papers)
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		out.CurrentUser = &u
	}
	return out
}

// normalize replaces nil collections so the snapshot always encodes arrays.
func (s State) normalize() State {
	if s.Users == nil {
		s.Users = []domain.User{}
	}
	if s.Papers == nil {
		s.Papers = []domain.Paper{}
	}
	return s
}

// =============================================================================
// Lookups
// =============================================================================

func (s State) userIndex(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) paperIndex(id string) int {
	for i := range s.Papers {
		if s.Papers[i].ID == id {
			return i
		}
	}
	return -1
}

// UserByID returns the user with id.
func (s State) UserByID(id string) (domain.User, bool) {
	if i := s.userIndex(id); i >= 0 {
		return s.Users[i], true
	}
	return domain.User{}, false
}

// UserByEmail returns the user whose email matches case-insensitively.
func (s State) UserByEmail(email string) (domain.User, bool) {
	want := domain.NormalizeEmail(email)
	for _, u := range s.Users {
		if domain.NormalizeEmail(u.Email) == want {
			return u, true
		}
	}
	return domain.User{}, false
}

// PaperByID returns the paper with id.
func (s State) PaperByID(id string) (domain.Paper, bool) {
	if i := s.paperIndex(id); i >= 0 {
		return s.Papers[i], true
	}
	return domain.Paper{}, false
}

// PapersWhere returns the papers matching keep, in submission order.
func (s State) PapersWhere(keep func(domain.Paper) bool) []domain.Paper {
	out := []domain.Paper{}
	for _, p := range s.Papers {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// UsersWithRole returns the users holding role, in creation order.
func (s State) UsersWithRole(role domain.Role) []domain.User {
	out := []domain.User{}
	for _, u := range s.Users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

// =============================================================================
// Session
// =============================================================================

// WithCurrentUser replaces the actor. nil signs out.
func (s State) WithCurrentUser(u *domain.User) State {
	next := s.Clone()
	if u == nil {
		next.CurrentUser = nil
		return next
	}
	actor := *u
	next.CurrentUser = &actor
	return next
}

// =============================================================================
// Users
// =============================================================================

// AddUser appends u. The id and the email must both be unused.
func (s State) AddUser(u domain.User) (State, error) {
	if !u.Role.Valid() {
		return s, domain.NewDomainError(domain.ErrInvalidRole, string(u.Role), u.ID)
	}
	if _, ok := s.UserByID(u.ID); ok {
		return s, domain.NewDomainError(domain.ErrConflict, "user id already exists", u.ID)
	}
	if _, ok := s.UserByEmail(u.Email); ok {
		return s, domain.NewDomainError(domain.ErrConflict, "email already registered", u.Email)
	}

	next := s.Clone()
	next.Users = append(next.Users, u)
	return next, nil
}

// ReplaceUser swaps the stored record with the same id for u.
// The role is part of the identity and cannot change.
func (s State) ReplaceUser(u domain.User) (State, error) {
	i := s.userIndex(u.ID)
	if i < 0 {
		return s, domain.NewDomainError(domain.ErrUserNotFound, "", u.ID)
	}
	if s.Users[i].Role != u.Role {
		return s, domain.NewDomainError(domain.ErrRoleImmutable,
			fmt.Sprintf("%s -> %s", s.Users[i].Role, u.Role), u.ID)
	}
	// Older snapshots may already hold duplicate emails; only a change is checked.
	if domain.NormalizeEmail(u.Email) != domain.NormalizeEmail(s.Users[i].Email) {
		if other, ok := s.UserByEmail(u.Email); ok && other.ID != u.ID {
			return s, domain.NewDomainError(domain.ErrConflict, "email already registered", u.Email)
		}
	}

	next := s.Clone()
	next.Users[i] = u

	// Keep the session actor in step with its account.
	if next.CurrentUser != nil && next.CurrentUser.ID == u.ID {
		actor := u
		next.CurrentUser = &actor
	}
	return next, nil
}

// updateUser applies fn to a copy of the user with id and stores the result.
func (s State) updateUser(id string, fn func(u *domain.User)) (State, domain.User, error) {
	u, ok := s.UserByID(id)
	if !ok {
		return s, domain.User{}, domain.NewDomainError(domain.ErrUserNotFound, "", id)
	}
	fn(&u)
	next, err := s.ReplaceUser(u)
	if err != nil {
		return s, domain.User{}, err
	}
	return next, u, nil
}

// SetUserStatus sets the account standing of id. Setting the current status
// again is not an error.
func (s State) SetUserStatus(id string, status domain.UserStatus) (State, domain.User, error) {
	return s.updateUser(id, func(u *domain.User) { u.Status = status })
}

// SetPassword stores a new password hash for id.
func (s State) SetPassword(id, hash string) (State, domain.User, error) {
	return s.updateUser(id, func(u *domain.User) { u.PasswordHash = hash })
}

// Rename changes the display name of id. Papers keep the name they were
// submitted under.
func (s State) Rename(id, name string) (State, domain.User, error) {
	return s.updateUser(id, func(u *domain.User) { u.Name = name })
}

// =============================================================================
// Papers
// =============================================================================

// AddPaper appends p after checking that its author may submit.
func (s State) AddPaper(p domain.Paper) (State, error) {
	if _, ok := s.PaperByID(p.ID); ok {
		return s, domain.NewDomainError(domain.ErrConflict, "paper id already exists", p.ID)
	}

	author, ok := s.UserByID(p.AuthorID)
	if !ok {
		return s, domain.NewDomainError(domain.ErrUserNotFound, "author", p.AuthorID)
	}
	if author.Role != domain.RoleUser {
		return s, domain.NewDomainError(domain.ErrNotAuthor, string(author.Role), author.ID)
	}
	if author.IsBanned() {
		return s, domain.NewDomainError(domain.ErrUserBanned, "", author.ID)
	}

	next := s.Clone()
	next.Papers = append(next.Papers, p)
	return next, nil
}

// updatePaper applies fn to a copy of the paper with id and stores the result.
func (s State) updatePaper(id string, fn func(p *domain.Paper)) (State, domain.Paper, error) {
	i := s.paperIndex(id)
	if i < 0 {
		return s, domain.Paper{}, domain.NewDomainError(domain.ErrPaperNotFound, "", id)
	}

	next := s.Clone()
	fn(&next.Papers[i])
	return next, next.Papers[i], nil
}

// AssignPaper hands the paper to a professor and moves it to UNDER_REVIEW.
func (s State) AssignPaper(paperID, professorID string, mode lifecycle.Mode) (State, domain.Paper, lifecycle.Transition, error) {
	p, ok := s.PaperByID(paperID)
	if !ok {
		return s, domain.Paper{}, lifecycle.Transition{}, domain.NewDomainError(domain.ErrPaperNotFound, "", paperID)
	}

	prof, ok := s.UserByID(professorID)
	if !ok {
		return s, domain.Paper{}, lifecycle.Transition{}, domain.NewDomainError(domain.ErrUserNotFound, "professor", professorID)
	}
	if prof.Role != domain.RoleProfessor {
		return s, domain.Paper{}, lifecycle.Transition{}, domain.NewDomainError(domain.ErrNotProfessor, string(prof.Role), professorID)
	}

	t, err := lifecycle.Check(mode, p.Status, lifecycle.ActionAssign)
	if err != nil {
		return s, domain.Paper{}, t, err
	}

	next, updated, err := s.updatePaper(paperID, func(p *domain.Paper) {
		p.AssignedProfessorID = professorID
		p.Status = t.To
	})
	return next, updated, t, err
}

// SetPaperStatus moves the paper to status and records the reviewer comments.
func (s State) SetPaperStatus(paperID string, status domain.PaperStatus, comments string, mode lifecycle.Mode) (State, domain.Paper, lifecycle.Transition, error) {
	p, ok := s.PaperByID(paperID)
	if !ok {
		return s, domain.Paper{}, lifecycle.Transition{}, domain.NewDomainError(domain.ErrPaperNotFound, "", paperID)
	}

	t, err := lifecycle.CheckStatus(mode, p.Status, status)
	if err != nil {
		return s, domain.Paper{}, t, err
	}

	next, updated, err := s.updatePaper(paperID, func(p *domain.Paper) {
		p.Status = t.To
		p.RevisionComments = comments
	})
	return next, updated, t, err
}

// SetManuscript records the storage key of the paper's manuscript.
func (s State) SetManuscript(paperID, path string) (State, domain.Paper, error) {
	return s.updatePaper(paperID, func(p *domain.Paper) { p.ManuscriptPath = path })
}
