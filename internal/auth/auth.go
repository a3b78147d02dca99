package auth

import (
	"context"
)

type contextKey string

const userIDKey contextKey = "userID"

// GetUserIDFromContext retrieves the authenticated player ID from the context
func GetUserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// SetUserIDInContext stores the authenticated player ID in the context
func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
