package users

import "time"

// RoleType represents a user's system role as reported by the auth service.
type RoleType string

const (
	RoleUser  RoleType = "USER"
	RoleAdmin RoleType = "ADMIN"
)

// DefaultProvider tags users whose payload omits the issuing auth backend.
const DefaultProvider = "auth-service"

// User is the normalized authenticated user profile. Instances are produced by
// Normalize and treated as immutable once attached to a session snapshot.
type User struct {
	ID        string    `json:"id"`         // Unique identifier, primary identity
	Username  string    `json:"username"`   // Unique username
	Email     string    `json:"email"`      // User's email address
	Name      string    `json:"name"`       // Display name, see Normalize for the derivation order
	Role      RoleType  `json:"role"`       // System role (USER or ADMIN)
	Provider  string    `json:"provider"`   // Auth backend that issued this identity
	CreatedAt time.Time `json:"created_at"` // Account creation time, normalized to UTC
	UpdatedAt time.Time `json:"updated_at"` // Last profile update time, normalized to UTC
}

// IsAdmin returns true if the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
