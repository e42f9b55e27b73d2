package types

import "time"

// Role is the closed set of authorization levels a user can hold.
type Role string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "user"

	// RoleAdmin grants access to the admin surface.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. Stored lowercased; globally unique.
	Email string `json:"email" db:"email"`

	// Username is an optional public handle.
	Username string `json:"username,omitempty" db:"username"`

	// FullName is the user's optional display name.
	FullName string `json:"fullName,omitempty" db:"full_name"`

	// AvatarURL points at the user's avatar image.
	AvatarURL string `json:"avatarUrl,omitempty" db:"avatar_url"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
