package utils

import "context"

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "role"
	CallerKey   contextKey = "caller"
)

type ctxKey string

const internalRequestKey ctxKey = "internal_request"

// WithInternalRequest marks ctx as coming from a trusted service.
func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}
