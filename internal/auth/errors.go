package auth

import "errors"

// Authentication errors.
var (
	// ErrInvalidToken indicates the session token is malformed, forged or expired.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrWeakSecret indicates the signing secret is too short.
	ErrWeakSecret = errors.New("session secret is too short")

	// ErrNoSession indicates the request carries no signed-in actor.
	ErrNoSession = errors.New("not signed in")
)
