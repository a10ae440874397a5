// Package services holds the business logic behind the HTTP surface: the
// credential and identity service, the session token manager and the
// email-verification state machine. Every operation takes the acting
// identity explicitly; nothing is resolved from ambient state.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keralabs/passway/core"
	"github.com/keralabs/passway/pkg/crypto"
)

const (
	// incorrectCredentials is shared by the missing-user and bad-password
	// login paths so a caller cannot probe which addresses have accounts.
	incorrectCredentials = "The provided credentials are incorrect."

	emailTaken = "has already been taken"

	// DefaultPerPage matches the listing page size of the admin surface.
	DefaultPerPage = 15

	maxPerPage = 100
)

// Accounts is the credential and identity service. It owns registration,
// login verification, profile mutation and the admin listing/update
// operations.
type Accounts struct {
	storage      core.Storage
	passwords    crypto.PasswordHandler
	verification *Verification
}

func NewAccounts(storage core.Storage, passwords crypto.PasswordHandler, verification *Verification) *Accounts {
	return &Accounts{
		storage:      storage,
		passwords:    passwords,
		verification: verification,
	}
}

// Register creates a new user with an irreversibly hashed password and
// dispatches the verification email. Nothing is persisted unless every
// field rule passes; violations come back together as a *core.ValidationError.
func (s *Accounts) Register(ctx context.Context, input RegisterInput) (*core.User, error) {
	verr := core.FoldValidation(input.Validate())

	if input.Email != "" {
		existing, err := s.storage.GetUserByEmail(ctx, input.Email)
		if err != nil && !errors.Is(err, core.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			verr.Add("email", emailTaken)
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := crypto.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}

	role := input.Role
	if role == "" {
		role = core.RoleUser
	}

	now := time.Now()
	user := &core.User{
		ID:           id,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		// Losing the race between the availability check and the insert
		// reports the same field error as the check itself.
		if errors.Is(err, core.ErrUserExists) {
			verr.Add("email", emailTaken)
			return nil, verr
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Explicit outbound call in place of the usual registration event bus.
	// A failed send never rolls the account back.
	_ = s.verification.SendLink(ctx, user)

	return user, nil
}

// Login resolves credentials to a user. Unknown email and wrong password
// produce the identical error shape.
func (s *Accounts) Login(ctx context.Context, input LoginInput) (*core.User, error) {
	if err := input.Validate(); err != nil {
		return nil, core.FoldValidation(err)
	}

	user, err := s.storage.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, incorrectCredentialsError()
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	valid, err := s.passwords.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, incorrectCredentialsError()
	}

	return user, nil
}

// UpdateProfile applies a partial update to the authenticated user. Absent
// fields stay untouched; a present password is stored as a fresh hash.
// All-or-nothing: no field is persisted unless every present field passes.
func (s *Accounts) UpdateProfile(ctx context.Context, user *core.User, input UpdateProfileInput) (*core.User, error) {
	verr := core.FoldValidation(input.Validate())

	if input.Email != nil {
		if err := s.checkEmailAvailable(ctx, *input.Email, user.ID, verr); err != nil {
			return nil, err
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	updated := *user
	if input.Name != nil {
		updated.Name = *input.Name
	}
	if input.Email != nil {
		updated.Email = *input.Email
	}
	if input.Password != nil {
		hash, err := s.passwords.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = time.Now()

	if err := s.storage.UpdateUser(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &updated, nil
}

// ListUsers returns one page of the user listing, newest first,
// optionally filtered by role.
func (s *Accounts) ListUsers(ctx context.Context, page, perPage int, role string) (*core.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = DefaultPerPage
	}

	users, total, err := s.storage.ListUsers(ctx, core.UserFilter{
		Role:   role,
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*core.User{}
	}

	return &core.UserPage{
		Data:       users,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// AdminUpdate mutates another user through an explicit validated
// allowlist (name, email, role). Fields outside the allowlist never reach
// storage; password changes stay on the profile path.
func (s *Accounts) AdminUpdate(ctx context.Context, id string, input AdminUpdateInput) (*core.User, error) {
	user, err := s.storage.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	verr := core.FoldValidation(input.Validate())

	if input.Email != nil {
		if err := s.checkEmailAvailable(ctx, *input.Email, user.ID, verr); err != nil {
			return nil, err
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	updated := *user
	if input.Name != nil {
		updated.Name = *input.Name
	}
	if input.Email != nil {
		updated.Email = *input.Email
	}
	if input.Role != nil {
		updated.Role = *input.Role
	}
	updated.UpdatedAt = time.Now()

	if err := s.storage.UpdateUser(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &updated, nil
}

// checkEmailAvailable records an email-taken violation unless email is
// free or already belongs to ownerID (setting an email to its own current
// value is allowed).
func (s *Accounts) checkEmailAvailable(ctx context.Context, email, ownerID string, verr *core.ValidationError) error {
	existing, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil && existing.ID != ownerID {
		verr.Add("email", emailTaken)
	}
	return nil
}

func incorrectCredentialsError() *core.ValidationError {
	verr := core.NewValidationError()
	verr.Add("email", incorrectCredentials)
	return verr
}
