package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keralabs/passway/core"
	"github.com/keralabs/passway/pkg/crypto"
)

// Verification owns the email-ownership state machine. A user moves from
// unverified to verified exactly once; the reverse transition does not
// exist.
type Verification struct {
	storage  core.UserStorage
	notifier core.Notifier // optional, nil disables outbound mail
	signer   *crypto.LinkSigner
	linkBase string // public prefix for signed links, e.g. "https://example.com/auth"
}

func NewVerification(storage core.UserStorage, notifier core.Notifier, signer *crypto.LinkSigner, linkBase string) *Verification {
	return &Verification{
		storage:  storage,
		notifier: notifier,
		signer:   signer,
		linkBase: linkBase,
	}
}

// Link builds the signed verification URL for a user. The link authorizes
// one verification transition without a live session.
func (v *Verification) Link(user *core.User) string {
	return fmt.Sprintf("%s/email/verify/%s/%s", v.linkBase, user.ID, v.signer.Sign(user.ID, user.Email))
}

// SendLink dispatches a verification email through the notifier. With no
// notifier configured it is a no-op.
func (v *Verification) SendLink(ctx context.Context, user *core.User) error {
	if v.notifier == nil {
		return nil
	}
	if err := v.notifier.SendVerificationEmail(ctx, user, v.Link(user)); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// Verify marks the user's email as verified. An already-verified user
// reports core.ErrAlreadyVerified and nothing is written.
func (v *Verification) Verify(ctx context.Context, user *core.User) error {
	if user.Verified() {
		return core.ErrAlreadyVerified
	}

	now := time.Now()
	updated := *user
	updated.EmailVerifiedAt = &now
	updated.UpdatedAt = now

	if err := v.storage.UpdateUser(ctx, &updated); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	*user = updated
	return nil
}

// VerifyFromLink authorizes the transition with a signed (id, signature)
// pair instead of a bearer token. A missing user reports the same
// invalid-link failure as a bad signature; the signature comparison is
// constant time.
func (v *Verification) VerifyFromLink(ctx context.Context, id, signature string) (*core.User, error) {
	user, err := v.storage.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidLink
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !v.signer.Check(user.ID, user.Email, signature) {
		return nil, core.ErrInvalidLink
	}

	if err := v.Verify(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResendNotification re-sends the verification email. Only unverified
// accounts have anything to resend.
func (v *Verification) ResendNotification(ctx context.Context, user *core.User) error {
	if user.Verified() {
		return core.ErrAlreadyVerified
	}
	return v.SendLink(ctx, user)
}
