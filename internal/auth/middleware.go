package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// ActorResolver looks up the account a session belongs to.
// Ready reports whether lookups reflect the loaded state.
type ActorResolver interface {
	Ready() bool
	UserByID(id string) (domain.User, bool)
}

// Config contains configuration for the session middleware.
type Config struct {
	// SkipPaths are paths that skip session resolution.
	SkipPaths []string

	// CookieSecure is applied when a stale cookie is cleared.
	CookieSecure bool
}

// DefaultConfig returns the default session middleware configuration.
func DefaultConfig() Config {
	return Config{
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// Middleware resolves the session cookie into an actor on the request context.
// Requests without a valid session continue anonymously; stale cookies are
// cleared so the browser stops sending them. Until the resolver is ready the
// cookie is left alone, since a miss says nothing about the session.
func Middleware(tokens *TokenManager, users ActorResolver, config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if path should skip authentication
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !users.Ready() {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Parse(cookie.Value)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Str("path", r.URL.Path).Msg("session token rejected")
				ClearSessionCookie(w, config.CookieSecure)
				next.ServeHTTP(w, r)
				return
			}

			user, ok := users.UserByID(userID)
			if !ok {
				hlog.FromRequest(r).Debug().Str("user_id", userID).Msg("session for unknown user")
				ClearSessionCookie(w, config.CookieSecure)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), &user)))
		})
	}
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *domain.User) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// ActorFromContext returns the signed-in actor, or nil.
func ActorFromContext(ctx context.Context) *domain.User {
	if actor, ok := ctx.Value(ActorContextKey).(*domain.User); ok {
		return actor
	}
	return nil
}

// RequireActor returns the signed-in actor or ErrNoSession.
func RequireActor(ctx context.Context) (*domain.User, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, ErrNoSession
	}
	return actor, nil
}
