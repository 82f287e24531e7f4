package model

import "slices"

// Scope constants for endpoint authorization.
const (
	// ScopeAll satisfies every required scope.
	ScopeAll = "all"

	ScopeOrganizationRead  = "organization:read"
	ScopeOrganizationWrite = "organization:write"
	ScopePaymentsAdmin     = "payments:admin"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{
	ScopeAll,
	ScopeOrganizationRead,
	ScopeOrganizationWrite,
	ScopePaymentsAdmin,
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID string
	Type   UserType
	Scopes []string
}

// HasScope checks if the auth context carries a specific scope.
// The "all" scope implies every other scope.
func (a *AuthContext) HasScope(scope string) bool {
	if slices.Contains(a.Scopes, ScopeAll) {
		return true
	}
	return slices.Contains(a.Scopes, scope)
}
