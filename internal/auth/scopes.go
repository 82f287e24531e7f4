// Package auth provides credential handling and scope-based access control.
package auth

import (
	"errors"
	"slices"

	"github.com/plixa/plixa/internal/model"
)

var (
	// ErrInsufficientScope indicates a valid principal lacks the required capability.
	ErrInsufficientScope = errors.New("insufficient scope")
	// ErrNoRequiredScopes indicates Authorize was called for an unprotected
	// operation; public operations must not consult the evaluator.
	ErrNoRequiredScopes = errors.New("no required scopes given")
	// ErrUnauthenticated indicates a bad, missing or expired credential.
	// It is reported before authorization is ever evaluated.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Principal identifies an authenticated actor. It is constructed fresh per
// request from decoded token claims and never persisted.
type Principal struct {
	UserID string
	Type   model.UserType
}

// ScopeTable maps a user classification to its default scope grant.
type ScopeTable map[model.UserType][]string

// DefaultScopeTable returns the production scope grants. Superusers hold
// the universal scope; staff and platform users get organization access.
func DefaultScopeTable() ScopeTable {
	return ScopeTable{
		model.TypeSuperuser:    {model.ScopeAll},
		model.TypeStaff:        {model.ScopeOrganizationRead, model.ScopeOrganizationWrite},
		model.TypePlatformUser: {model.ScopeOrganizationRead, model.ScopeOrganizationWrite},
	}
}

// Evaluator decides whether a principal may invoke an operation. It is a
// pure function of its inputs and the table it was constructed with, and is
// safe for concurrent use; the table must not be mutated after construction.
type Evaluator struct {
	table ScopeTable
}

// NewEvaluator creates an Evaluator over the given scope table.
func NewEvaluator(table ScopeTable) *Evaluator {
	return &Evaluator{table: table}
}

// Granted returns the scopes the table grants a classification.
// Unknown classifications get no scopes.
func (e *Evaluator) Granted(t model.UserType) []string {
	return slices.Clone(e.table[t])
}

// Satisfies reports whether a granted scope set covers a required one:
// either the universal "all" scope is held, or the sets intersect.
func Satisfies(granted, required []string) bool {
	if slices.Contains(granted, model.ScopeAll) {
		return true
	}
	for _, req := range required {
		if slices.Contains(granted, req) {
			return true
		}
	}
	return false
}

// Authorize decides whether the principal may invoke an operation with the
// given scope requirement. required must be non-empty.
func (e *Evaluator) Authorize(p Principal, required ...string) error {
	if len(required) == 0 {
		return ErrNoRequiredScopes
	}
	if !Satisfies(e.table[p.Type], required) {
		return ErrInsufficientScope
	}
	return nil
}
