package session

import (
	"context"
	"time"
)

// Session is the identity attached to one request. The zero value is anonymous.
type Session struct {
	UserID    string
	Username  string
	Email     string
	ExpiresAt time.Time
}

// Authenticated reports whether the request carried a valid token.
func (s Session) Authenticated() bool { return s.UserID != "" }

// FromClaims builds the session for verified claims.
func FromClaims(c *Claims) Session {
	s := Session{UserID: c.Subject, Username: c.Username, Email: c.Email}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

type contextKey string

var sessionContextKey = contextKey("session")

// FromContext returns the session stored by the resolver, or an anonymous one.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionContextKey).(Session)
	return s
}

// WithSession stores s in ctx. Used by the resolver and by tests.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}
