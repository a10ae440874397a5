package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, int, error)
}

// UserFilter narrows and pages a user listing. An empty Role matches
// every role.
type UserFilter struct {
	Role   string
	Offset int
	Limit  int
}

// TokenStorage defines token-related database operations
type TokenStorage interface {
	CreateToken(ctx context.Context, t *Token) error
	GetTokenByHash(ctx context.Context, tokenHash string) (*Token, error)
	DeleteTokenByHash(ctx context.Context, tokenHash string) error
	DeleteUserTokens(ctx context.Context, userID string) (int, error)
	TouchToken(ctx context.Context, id string, usedAt time.Time) error
}

// Storage is the full persistence port: the single source of truth for
// users and tokens.
type Storage interface {
	UserStorage
	TokenStorage
}

// ============================================
// NOTIFIER PORT
// ============================================

// Notifier delivers account email. Registration and resend call it
// explicitly; a failed send is reported to the caller, never retried here.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, user *User, link string) error
}
