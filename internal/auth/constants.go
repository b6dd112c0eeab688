// Package auth provides session authentication for the JMRH portal.
// A signed JWT in an HttpOnly cookie carries the actor's user id; the
// middleware resolves it against the store on every request.
package auth

import "time"

// =============================================================================
// Constants
// =============================================================================

const (
	// SessionCookieName is the cookie holding the session token.
	SessionCookieName = "jmrh_session"

	// Issuer is the "iss" claim of session tokens.
	Issuer = "jmrh-portal"

	// DefaultSessionTTL is used when no TTL is configured.
	DefaultSessionTTL = 24 * time.Hour

	// MinSecretLength is the shortest accepted signing secret in bytes.
	MinSecretLength = 32
)

// contextKey is the type for context keys in this package.
type contextKey string

// ActorContextKey is the context key for the signed-in actor.
const ActorContextKey contextKey = "actor"
