// Package lifecycle defines the manuscript review state machine.
//
// Transitions are looked up in an explicit table keyed by the current status
// and the requested action. Depending on Mode, a transition missing from the
// table is either applied and flagged (Permissive) or rejected (Strict).
package lifecycle

import (
	"fmt"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// Action is something an admin or professor does to a paper.
type Action string

const (
	ActionAssign          Action = "assign"
	ActionResumeReview    Action = "resume_review"
	ActionRequestRevision Action = "request_revision"
	ActionAccept          Action = "accept"
	ActionReject          Action = "reject"
	ActionReset           Action = "reset"
)

// Mode selects how illegal transitions are handled.
type Mode int

const (
	// Permissive applies illegal transitions and reports them as flagged.
	Permissive Mode = iota

	// Strict rejects illegal transitions with domain.ErrIllegalTransition.
	Strict
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "permissive"
}

type key struct {
	from   domain.PaperStatus
	action Action
}

var table = map[key]domain.PaperStatus{
	{domain.PaperSubmitted, ActionAssign}:              domain.PaperUnderReview,
	{domain.PaperUnderReview, ActionAssign}:            domain.PaperUnderReview,
	{domain.PaperRevisionRequired, ActionAssign}:       domain.PaperUnderReview,
	{domain.PaperUnderReview, ActionRequestRevision}:   domain.PaperRevisionRequired,
	{domain.PaperUnderReview, ActionAccept}:            domain.PaperAccepted,
	{domain.PaperUnderReview, ActionReject}:            domain.PaperRejected,
	{domain.PaperRevisionRequired, ActionResumeReview}: domain.PaperUnderReview,
	{domain.PaperRevisionRequired, ActionAccept}:       domain.PaperAccepted,
	{domain.PaperRevisionRequired, ActionReject}:       domain.PaperRejected,
}

// targets maps every action to the status it always produces.
var targets = map[Action]domain.PaperStatus{
	ActionAssign:          domain.PaperUnderReview,
	ActionResumeReview:    domain.PaperUnderReview,
	ActionRequestRevision: domain.PaperRevisionRequired,
	ActionAccept:          domain.PaperAccepted,
	ActionReject:          domain.PaperRejected,
	ActionReset:           domain.PaperSubmitted,
}

// Transition is the outcome of checking a status change.
type Transition struct {
	From   domain.PaperStatus
	To     domain.PaperStatus
	Action Action

	// Legal is false when the table has no entry for (From, Action).
	Legal bool
}

// Flagged returns true for an illegal transition applied in permissive mode.
func (t Transition) Flagged() bool {
	return !t.Legal
}

// ActionFor maps a requested target status to the action that produces it.
// from disambiguates UNDER_REVIEW: leaving REVISION_REQUIRED resumes review,
// anything else counts as an assignment.
func ActionFor(from, to domain.PaperStatus) (Action, error) {
	switch to {
	case domain.PaperUnderReview:
		if from == domain.PaperRevisionRequired {
			return ActionResumeReview, nil
		}
		return ActionAssign, nil
	case domain.PaperRevisionRequired:
		return ActionRequestRevision, nil
	case domain.PaperAccepted:
		return ActionAccept, nil
	case domain.PaperRejected:
		return ActionReject, nil
	case domain.PaperSubmitted:
		return ActionReset, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, to)
}

// Check evaluates action against the current status.
// In Strict mode an illegal transition returns domain.ErrIllegalTransition;
// in Permissive mode it is returned with Legal=false and no error.
func Check(mode Mode, from domain.PaperStatus, action Action) (Transition, error) {
	to, ok := targets[action]
	if !ok {
		return Transition{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidStatus, action)
	}

	_, legal := table[key{from, action}]
	t := Transition{From: from, To: to, Action: action, Legal: legal}

	if !legal && mode == Strict {
		return t, domain.NewDomainError(domain.ErrIllegalTransition,
			fmt.Sprintf("%s -> %s via %s", from, to, action), "")
	}
	return t, nil
}

// CheckStatus is Check for a requested target status.
func CheckStatus(mode Mode, from, to domain.PaperStatus) (Transition, error) {
	action, err := ActionFor(from, to)
	if err != nil {
		return Transition{}, err
	}
	return Check(mode, from, action)
}

// Next returns the statuses reachable from s through legal transitions,
// in lifecycle order. Review UIs use it to offer choices.
func Next(s domain.PaperStatus) []domain.PaperStatus {
	var out []domain.PaperStatus
	for _, to := range domain.PaperStatuses {
		action, err := ActionFor(s, to)
		if err != nil {
			continue
		}
		if _, ok := table[key{s, action}]; ok && action != ActionAssign {
			out = append(out, to)
		}
	}
	return out
}

// CanReview reports whether actor may change the status of p.
// Admins may review any paper; professors only the papers assigned to them.
func CanReview(actor *domain.User, p domain.Paper) bool {
	if actor == nil || actor.IsBanned() {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleProfessor:
		return p.AssignedProfessorID == actor.ID
	}
	return false
}
