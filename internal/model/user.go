package model

import "time"

// User roles. Admins manage labs and decide reservations; lecturers and
// students submit booking requests. Lecturers may additionally decide
// student requests when peer approval is enabled in configuration.
const (
	RoleAdmin    = "ADMIN"
	RoleLecturer = "LECTURER"
	RoleStudent  = "STUDENT"
)

// ValidRole reports whether s is one of the three known roles.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleLecturer || s == RoleStudent
}

// RequesterRole reports whether s is a role allowed to create
// reservations.
func RequesterRole(s string) bool {
	return s == RoleLecturer || s == RoleStudent
}

// User represents an account in the portal.
//
// Fields:
//  ID           primary key identifier.
//  Email        unique, normalized to lower case.
//  PasswordHash bcrypt hash of the password.
//  Role         one of ADMIN, LECTURER, STUDENT.
//  IsActive     whether the account may log in.
//  CreatedAt    creation timestamp.
//  UpdatedAt    last update timestamp.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
