package auth

import "context"

// SetUserIDForTest injects a spectator ID into the context, standing in for
// the middleware in handler tests.
func SetUserIDForTest(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
