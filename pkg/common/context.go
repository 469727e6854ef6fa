package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

// ContextKeyUserID carries the authenticated editor user. Results rendered
// while handling a request go to this user's viewers.
const ContextKeyUserID ContextKey = "user_id"

// WithUserID adds user ID to context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetUserID extracts user ID from context. An empty ID counts as missing.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok && userID != ""
}
