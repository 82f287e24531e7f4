package middleware

import (
	"fmt"
	"net/http"

	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/model"
)

// RequireScope returns middleware that enforces scope requirements.
// Must be applied after Auth middleware.
// If multiple scopes are provided, having ANY of them is sufficient;
// the universal scope always passes.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeScopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if auth.Satisfies(authCtx.Scopes, required) {
				next.ServeHTTP(w, r)
				return
			}

			writeScopeError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE",
				fmt.Sprintf("Insufficient permissions. Required scope: %s", required[0]))
		})
	}
}

// RequireOrganizationRead is a convenience middleware for the read scope.
func RequireOrganizationRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeOrganizationRead)
}

// RequireOrganizationWrite is a convenience middleware for the write scope.
func RequireOrganizationWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeOrganizationWrite)
}

// RequirePaymentsAdmin is a convenience middleware for payment administration.
func RequirePaymentsAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopePaymentsAdmin)
}

// writeScopeError writes a scope-related error response.
func writeScopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":"%s","message":"%s"}}`, code, message)))
}
