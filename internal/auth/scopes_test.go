package auth

import (
	"errors"
	"testing"

	"github.com/plixa/plixa/internal/model"
)

func TestEvaluator_SuperuserSatisfiesEverything(t *testing.T) {
	e := NewEvaluator(DefaultScopeTable())
	p := Principal{UserID: "u1", Type: model.TypeSuperuser}

	requirements := [][]string{
		{model.ScopeOrganizationRead},
		{model.ScopeOrganizationWrite},
		{model.ScopePaymentsAdmin},
		{model.ScopeAll},
		{"some:future-scope"},
	}

	for _, required := range requirements {
		if err := e.Authorize(p, required...); err != nil {
			t.Errorf("Authorize(superuser, %v) = %v, want nil", required, err)
		}
	}
}

func TestEvaluator_Authorize(t *testing.T) {
	testCases := []struct {
		name     string
		userType model.UserType
		required []string
		wantErr  error
	}{
		{
			name:     "platform user can read organizations",
			userType: model.TypePlatformUser,
			required: []string{model.ScopeOrganizationRead},
		},
		{
			name:     "platform user can write organizations",
			userType: model.TypePlatformUser,
			required: []string{model.ScopeOrganizationWrite},
		},
		{
			name:     "platform user cannot administer payments",
			userType: model.TypePlatformUser,
			required: []string{model.ScopePaymentsAdmin},
			wantErr:  ErrInsufficientScope,
		},
		{
			name:     "staff can write organizations",
			userType: model.TypeStaff,
			required: []string{model.ScopeOrganizationWrite},
		},
		{
			name:     "staff cannot administer payments",
			userType: model.TypeStaff,
			required: []string{model.ScopePaymentsAdmin},
			wantErr:  ErrInsufficientScope,
		},
		{
			name:     "any match in the required set suffices",
			userType: model.TypeStaff,
			required: []string{model.ScopePaymentsAdmin, model.ScopeOrganizationRead},
		},
		{
			name:     "unknown classification gets nothing",
			userType: model.UserType("intern"),
			required: []string{model.ScopeOrganizationRead},
			wantErr:  ErrInsufficientScope,
		},
		{
			name:     "empty requirement is a caller bug",
			userType: model.TypeSuperuser,
			required: nil,
			wantErr:  ErrNoRequiredScopes,
		},
	}

	e := NewEvaluator(DefaultScopeTable())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.Authorize(Principal{UserID: "u1", Type: tc.userType}, tc.required...)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Authorize() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestEvaluator_AlternateTable(t *testing.T) {
	// The table is injected, not a package singleton; tests and deployments
	// can supply their own grants.
	table := ScopeTable{
		model.TypeStaff: {model.ScopePaymentsAdmin},
	}
	e := NewEvaluator(table)

	if err := e.Authorize(Principal{Type: model.TypeStaff}, model.ScopePaymentsAdmin); err != nil {
		t.Errorf("expected staff payments:admin to pass under custom table, got %v", err)
	}
	if err := e.Authorize(Principal{Type: model.TypeStaff}, model.ScopeOrganizationRead); !errors.Is(err, ErrInsufficientScope) {
		t.Errorf("expected ErrInsufficientScope, got %v", err)
	}
}

func TestEvaluator_GrantedReturnsCopy(t *testing.T) {
	e := NewEvaluator(DefaultScopeTable())

	granted := e.Granted(model.TypeStaff)
	if len(granted) == 0 {
		t.Fatal("expected staff to have scopes")
	}
	granted[0] = "mutated"

	if e.Granted(model.TypeStaff)[0] == "mutated" {
		t.Error("Granted must not expose the evaluator's internal slice")
	}
}

func TestSatisfies(t *testing.T) {
	testCases := []struct {
		name     string
		granted  []string
		required []string
		want     bool
	}{
		{"all satisfies anything", []string{model.ScopeAll}, []string{"x:y"}, true},
		{"direct match", []string{model.ScopeOrganizationRead}, []string{model.ScopeOrganizationRead}, true},
		{"no overlap", []string{model.ScopeOrganizationRead}, []string{model.ScopePaymentsAdmin}, false},
		{"empty grant", nil, []string{model.ScopeOrganizationRead}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Satisfies(tc.granted, tc.required); got != tc.want {
				t.Errorf("Satisfies(%v, %v) = %v, want %v", tc.granted, tc.required, got, tc.want)
			}
		})
	}
}
