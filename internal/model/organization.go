package model

import (
	"slices"
	"time"
)

// Organization represents a payment-collecting body (a student union,
// a faculty association) that owns clusters and receives withdrawals.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"` // user IDs
	CreatedAt time.Time `json:"created_at"`
}

// IsMember reports whether the given user belongs to the organization.
func (o *Organization) IsMember(userID string) bool {
	return slices.Contains(o.Members, userID)
}

// CreateOrganizationRequest represents a request to create an organization.
type CreateOrganizationRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

// UpdateOrganizationRequest represents a partial organization update.
type UpdateOrganizationRequest struct {
	Name *string `json:"name,omitempty"`
}

// MembershipRequest carries the user IDs for add-users / remove-users.
type MembershipRequest struct {
	UserIDs []string `json:"user_ids"`
}
