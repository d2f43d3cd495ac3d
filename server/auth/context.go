package auth

import "context"

type contextKey int

const (
	// UserIDContextKey is the key for the authenticated user id.
	UserIDContextKey contextKey = iota
)

// SetUserIDInContext returns a copy of ctx carrying userID.
func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// GetUserID returns the authenticated user id, or "" when the request is anonymous.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDContextKey).(string); ok {
		return v
	}
	return ""
}
