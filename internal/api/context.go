package api

import (
	"context"

	"github.com/terra-clan/impact-portal/internal/identity"
)

type contextKey string

const sessionContextKey contextKey = "viewer_session"

// SessionFromContext extracts the viewer session from context
func SessionFromContext(ctx context.Context) *identity.Session {
	sess, ok := ctx.Value(sessionContextKey).(*identity.Session)
	if !ok {
		return nil
	}
	return sess
}

// ContextWithSession adds the viewer session to context
func ContextWithSession(ctx context.Context, sess *identity.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
