package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system (matches user_role enum)
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status represents account status (matches user_status enum)
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// User represents a user account (matches actual users table)
type User struct {
	ID            uuid.UUID `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	DisplayName   string    `db:"display_name"`
	Role          Role      `db:"role"`
	Status        Status    `db:"status"`
	EmailVerified bool      `db:"email_verified"`

	// Referral program
	ReferralCode string        `db:"referral_code"`
	ReferredBy   uuid.NullUUID `db:"referred_by"`

	// Login tracking
	LastLoginAt sql.NullTime   `db:"last_login_at"`
	LastLoginIP sql.NullString `db:"last_login_ip"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsSuspended returns true if the account is suspended
func (u *User) IsSuspended() bool {
	return u.Status == StatusSuspended
}
