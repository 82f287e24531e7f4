package auth

import (
	"context"

	"github.com/plixa/plixa/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// authContextKey is the context key for storing AuthContext.
	authContextKey contextKey = "auth_context"
)

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// PrincipalFromContext builds the SBAC principal for the current request.
// Returns the zero Principal and false when unauthenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return Principal{}, false
	}
	return Principal{UserID: auth.UserID, Type: auth.Type}, true
}

// UserIDFromContext is a convenience function to get the user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return ""
	}
	return auth.UserID
}
