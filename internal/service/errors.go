// Package service provides the portal's use cases on top of the session store.
package service

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/storage"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

// Common service errors.
var (
	// Account errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPortal        = errors.New("account cannot sign in here")
	ErrSamePassword       = errors.New("new password must differ from the old one")

	// Manuscript errors
	ErrNoManuscript          = errors.New("paper has no manuscript")
	ErrManuscriptUnavailable = errors.New("manuscript is temporarily unavailable")
	ErrForeignManuscript     = errors.New("manuscript was not uploaded by this author")

	// General errors
	ErrValidation    = errors.New("validation failed")
	ErrInternalError = errors.New("internal server error")
)

// persisted treats a snapshot write failure as non-fatal. The change is
// already in effect, so it is logged and the caller proceeds.
func persisted(logger zerolog.Logger, op string, err error) error {
	if errors.Is(err, store.ErrPersist) {
		logger.Error().Err(err).Str("op", op).Msg("change applied but not persisted")
		return nil
	}
	return err
}

// IsUserError reports whether err is caused by the request rather than the
// system, so handlers can show it instead of a generic failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrInvalidCredentials, ErrWrongPortal, ErrSamePassword,
		ErrNoManuscript, ErrManuscriptUnavailable, ErrForeignManuscript,
		domain.ErrConflict, domain.ErrUserNotFound, domain.ErrPaperNotFound,
		domain.ErrNotProfessor, domain.ErrNotAuthor, domain.ErrUserBanned,
		domain.ErrIllegalTransition, domain.ErrInvalidStatus, domain.ErrForbidden,
		domain.ErrNoActor, storage.ErrStorageDisabled, storage.ErrUnsupportedFile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
