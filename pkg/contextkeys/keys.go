// Package contextkeys centralizes the context keys shared between the
// middleware layers and the handlers, so every producer and consumer of a
// request-scoped value goes through the same typed key.
package contextkeys

import "context"

// Key is the private type for context keys, preventing collisions with keys
// from other packages.
type Key string

const (
	// AuthKey carries the *auth.AuthContext set by the auth middleware.
	AuthKey Key = "auth_context"

	// RequestIDKey carries the request ID assigned by RequestIDMiddleware.
	RequestIDKey Key = "request_id"

	// UserIDKey carries the authenticated user's ID for logging and audit.
	UserIDKey Key = "user_id"
)

// WithAuth stores the authentication context. The value is typed as
// interface{} to keep this package free of an auth dependency; readers
// assert it back to *auth.AuthContext.
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithRequestID stores the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID stores the authenticated user's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRequestID returns the request ID, or "" when none was assigned.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID returns the authenticated user's ID, or "" for anonymous
// requests.
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
