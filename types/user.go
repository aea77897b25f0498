package types

import "time"

// UserRole distinguishes the capability of an identity. The identity
// lifecycle (signup, OTP, profile editing) is owned elsewhere; this
// subsystem only reads the projection below and writes IsAvailable.
type UserRole string

const (
	RoleCustomer     UserRole = "customer"
	RoleProfessional UserRole = "professional"
	RoleAdmin        UserRole = "admin"
)

// User is the identity projection consumed by the location subsystem.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Role           UserRole  `json:"role"`
	Specialization string    `json:"specialization"`
	Rating         float64   `json:"rating"`
	Services       []string  `json:"services"`
	IsAvailable    bool      `json:"isAvailable"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsProfessional reports whether the identity has the professional capability.
func (u *User) IsProfessional() bool {
	return u.Role == RoleProfessional
}
