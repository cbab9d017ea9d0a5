package model

import "time"

// Role names recognised in the `users.role` column and the JWT "role"
// claim.  Every authenticated user may book resources; only admins
// manage the resource directory.
const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
)

// User represents an employee account as stored in the `users` table.
// Authentication issues JWTs whose subject is the user ID; booking
// ownership checks compare the caller's ID against Booking.UserID.
// The json tags are omitted because these structs are used internally
// by the repository layer; handlers define separate response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lower-cased.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name used in notifications.
//  Role         – ADMIN or EMPLOYEE.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
