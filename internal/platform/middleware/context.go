package middleware

import (
	"context"

	"cat/internal/policy"
)

// Context keys for request-scoped identity and correlation values.
type contextKeyUserID struct{}
type contextKeyRequestID struct{}
type contextKeyCaller struct{}

var (
	ContextKeyUserID    = contextKeyUserID{}
	ContextKeyRequestID = contextKeyRequestID{}
	ContextKeyCaller    = contextKeyCaller{}
)

// GetUserID retrieves the authenticated user id from the context. Empty means
// the request did not pass RequireAuth.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// WithUserID stores the authenticated user id; exported for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// GetCaller retrieves the resolved caller identity from the context. The
// zero Caller means the request did not pass RequireRegistered.
func GetCaller(ctx context.Context) policy.Caller {
	caller, ok := ctx.Value(ContextKeyCaller).(policy.Caller)
	if !ok {
		return policy.Caller{}
	}
	return caller
}

// WithCaller stores the resolved caller identity; exported for handler tests.
func WithCaller(ctx context.Context, caller policy.Caller) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// GetRequestID retrieves the request correlation id from the context.
func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return requestID
}
