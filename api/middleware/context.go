package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/auth/session"
)

type contextKey string

const (
	ctxSessionID contextKey = "session_id"
	ctxSession   contextKey = "session_record"
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
)

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

func SessionFromContext(ctx context.Context) *session.Record {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*session.Record); ok {
		return v
	}
	return nil
}

// CartIDFromContext returns the cart bound to the request's session, or
// uuid.Nil when the request carries no session.
func CartIDFromContext(ctx context.Context) uuid.UUID {
	if record := SessionFromContext(ctx); record != nil {
		return record.CartID
	}
	return uuid.Nil
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithSession injects the resolved session into the context.
func WithSession(ctx context.Context, sessionID string, record *session.Record) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	return context.WithValue(ctx, ctxSession, record)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
