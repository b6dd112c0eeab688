// Package domain contains the core business entities for the JMRH portal.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict indicates a user with the same id or email already exists.
	ErrConflict = errors.New("conflict")

	// ErrRoleImmutable indicates an update tried to change a user's role.
	ErrRoleImmutable = errors.New("user role cannot be changed")

	// ErrUserBanned indicates the account has been banned.
	ErrUserBanned = errors.New("user account is banned")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrNotProfessor indicates the referenced user is not a PROFESSOR.
	ErrNotProfessor = errors.New("user is not a professor")

	// ===========================================
	// Paper Errors
	// ===========================================

	// ErrPaperNotFound indicates the requested paper does not exist.
	ErrPaperNotFound = errors.New("paper not found")

	// ErrNotAuthor indicates the submitting actor is not a USER.
	ErrNotAuthor = errors.New("only authors can submit papers")

	// ErrInvalidStatus indicates an unknown paper status.
	ErrInvalidStatus = errors.New("invalid paper status")

	// ErrIllegalTransition indicates the lifecycle does not allow the change.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrNoActor indicates an operation needs a signed-in actor.
	ErrNoActor = errors.New("no current user")

	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., user id, paper id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
