package domain

import "time"

// Role enumerates platform roles. The two administrative roles nest; the two
// participant roles are disjoint.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStudent    Role = "STUDENT"
	RoleEmployer   Role = "EMPLOYER"
)

// UserStatus represents lifecycle states for a platform user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the authoritative profile record. PinHash is a one-way digest; the
// raw PIN never appears outside the login request.
type User struct {
	ID             string
	Name           string
	Email          string
	IDNumber       string
	PinHash        string
	Role           Role
	Status         UserStatus
	CompletedHours float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
