package core

import "time"

// Role is the user's role
type Role = string

const (
	// RoleUser is a regular account (profile self-service only)
	RoleUser Role = "user"
	// RoleAdmin may list and update other accounts
	RoleAdmin Role = "admin"
)

// ValidRole reports whether r is one of the enumerated roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account in the system
//
// This is the "identity" - who someone is. The password credential is kept
// only as a one-way hash and never leaves the process in a serialized form.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"` // Never expose in JSON
	Role            Role       `json:"role"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Verified reports whether the email-ownership transition has happened.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// Token represents a bearer credential tied to one user
//
// The plaintext secret is shown once at creation; storage only ever holds
// its SHA-256 hash.
type Token struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"` // Never expose in JSON (security!)
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// UserPage is one page of an admin user listing.
type UserPage struct {
	Data       []*User `json:"data"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}
