package middleware

import "context"

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserID returns the authenticated user id, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	return id
}
