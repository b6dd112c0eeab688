package domain

import (
	"strings"
	"time"
)

// PaperStatus is a stage in the manuscript review lifecycle.
type PaperStatus string

const (
	// PaperSubmitted is the initial state of every paper.
	PaperSubmitted PaperStatus = "SUBMITTED"

	// PaperUnderReview means a professor has been assigned.
	PaperUnderReview PaperStatus = "UNDER_REVIEW"

	// PaperRevisionRequired means the author must revise; see RevisionComments.
	PaperRevisionRequired PaperStatus = "REVISION_REQUIRED"

	// PaperAccepted is terminal by convention.
	PaperAccepted PaperStatus = "ACCEPTED"

	// PaperRejected is terminal by convention.
	PaperRejected PaperStatus = "REJECTED"
)

// PaperStatuses lists every status in lifecycle order.
var PaperStatuses = []PaperStatus{
	PaperSubmitted,
	PaperUnderReview,
	PaperRevisionRequired,
	PaperAccepted,
	PaperRejected,
}

// Valid reports whether s is a known paper status.
func (s PaperStatus) Valid() bool {
	for _, known := range PaperStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal returns true for ACCEPTED and REJECTED.
func (s PaperStatus) IsTerminal() bool {
	return s == PaperAccepted || s == PaperRejected
}

// Label returns a human readable form, e.g. "Under review".
func (s PaperStatus) Label() string {
	words := strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
	if words == "" {
		return ""
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

// Paper represents a submitted manuscript.
type Paper struct {
	// ID is the unique identifier for the paper.
	ID string `json:"id"`

	// AuthorID references the submitting User.
	AuthorID string `json:"authorId"`

	// AuthorName is the author's display name at submission time.
	// It is not updated when the author later renames themselves.
	AuthorName string `json:"authorName"`

	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	Discipline string `json:"discipline"`

	// Status is the current lifecycle stage.
	Status PaperStatus `json:"status"`

	// AssignedProfessorID references a PROFESSOR once the paper is assigned.
	AssignedProfessorID string `json:"assignedProfessorId,omitempty"`

	// SubmittedAt is the timestamp of submission.
	SubmittedAt time.Time `json:"submittedAt"`

	// RevisionComments carries reviewer feedback, mainly for REVISION_REQUIRED.
	RevisionComments string `json:"revisionComments,omitempty"`

	// ManuscriptPath is the object-storage key of the uploaded manuscript.
	// Legacy records may hold a fully-qualified URL instead.
	ManuscriptPath string `json:"manuscriptPath,omitempty"`
}

// NewPaper creates a new Paper in the SUBMITTED state.
func NewPaper(id string, author User, title, abstract, discipline string, now time.Time) Paper {
	return Paper{
		ID:          id,
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		Title:       title,
		Abstract:    abstract,
		Discipline:  discipline,
		Status:      PaperSubmitted,
		SubmittedAt: now,
	}
}

// IsAssigned returns true if a professor has been assigned.
func (p Paper) IsAssigned() bool {
	return p.AssignedProfessorID != ""
}
