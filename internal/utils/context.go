package utils

import "context"

type contextKey string

// Caller is the authenticated identity as seen by outer middleware.
// Auth runs inside the route group, so the access log can only learn who
// called through a holder placed in the context before the request reaches it.
type Caller struct {
	UserID int64
	Role   string
}

// WithCaller returns ctx carrying an empty Caller that SetUserContext fills in.
func WithCaller(ctx context.Context) (context.Context, *Caller) {
	c := &Caller{}
	return context.WithValue(ctx, CallerKey, c), c
}

// SetUserContext sets user info into context (called by middleware)
func SetUserContext(ctx context.Context, id int64, role string) context.Context {
	if c, ok := ctx.Value(CallerKey).(*Caller); ok {
		c.UserID = id
		c.Role = role
	}
	ctx = context.WithValue(ctx, UserIDKey, id)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return ctx
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}
