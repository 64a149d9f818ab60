package auth

import "context"

type ctxKey struct{}

// WithUserID stores the authenticated caller on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the authenticated caller, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	userID, ok := ctx.Value(ctxKey{}).(string)
	return userID, ok && userID != ""
}
