// Package interceptors holds the Connect interceptors shared by every service.
package interceptors

import "context"

type contextKey int

const (
	userIDKey contextKey = iota
	userEmailKey
	userRoleKey
	requestIDKey
)

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext returns the authenticated user id.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetUserEmailFromContext returns the email claim of the access token.
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userEmailKey).(string)
	return v, ok
}

// GetUserRoleFromContext returns the role claim of the access token.
func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userRoleKey).(string)
	return v, ok
}

// GetRequestIDFromContext returns the id assigned by the request id interceptor.
func GetRequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
