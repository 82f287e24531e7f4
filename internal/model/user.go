// Package model defines domain entities for the application.
package model

import "time"

// UserType classifies an account and controls its default scope grant.
type UserType string

const (
	// TypeSuperuser has unrestricted access to every endpoint.
	TypeSuperuser UserType = "plixa_superuser"
	// TypeStaff handles compliance and creation of platform users and organizations.
	TypeStaff UserType = "plixa_staff"
	// TypePlatformUser is a regular organization member.
	TypePlatformUser UserType = "platform_user"
)

// IsValid reports whether the classification is a known one.
func (t UserType) IsValid() bool {
	switch t {
	case TypeSuperuser, TypeStaff, TypePlatformUser:
		return true
	}
	return false
}

// User represents a platform account.
type User struct {
	ID           string    `json:"id"`
	Type         UserType  `json:"type"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"` // Never serialize
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CreateUserRequest represents a request to create a new user.
type CreateUserRequest struct {
	Type            UserType `json:"type"`
	Email           string   `json:"email"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
}

// UpdateUserRequest represents a partial user update.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Type      UserType  `json:"type"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a User to its public representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Type:      u.Type,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Disabled:  u.Disabled,
		CreatedAt: u.CreatedAt,
	}
}
