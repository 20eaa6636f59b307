package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level fixed at signup.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleFarmer Role = "farmer"
	RoleUser   Role = "user"
)

// AllowedRoles is the set a signup request may ask for.
var AllowedRoles = []Role{RoleAdmin, RoleFarmer, RoleUser}

// IsValidRole reports whether r is in the signup allow-list.
func IsValidRole(r Role) bool {
	for _, allowed := range AllowedRoles {
		if r == allowed {
			return true
		}
	}
	return false
}

// Status is the account lifecycle state. Pending accounts hold an
// unconsumed verification token and are blocked from protected routes.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// User is the domain model. Password hash and token material are never
// serialized; handlers can return the struct as-is.
type User struct {
	ID                    uuid.UUID  `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Phone                 string     `json:"phone"`
	Address               string     `json:"address"`
	Role                  Role       `json:"role"`
	Status                Status     `json:"status"`
	ImageURL              *string    `json:"imageUrl,omitempty"`
	VerificationToken     *string    `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetPasswordToken    *string    `json:"-"`
	ResetPasswordExpires  *time.Time `json:"-"`
	LastLogin             *time.Time `json:"lastLogin,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// IsVerified reports whether the account left the pending state.
func (u *User) IsVerified() bool {
	return u.Status == StatusActive
}

// ProfileUpdate carries the optional fields of a profile patch.
// Nil pointers leave the column untouched.
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	Address  *string
	ImageURL *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil && p.ImageURL == nil
}
