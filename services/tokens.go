package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keralabs/passway/core"
	"github.com/keralabs/passway/pkg/crypto"
)

// TokenConfig controls issued bearer tokens.
type TokenConfig struct {
	// Name labels issued tokens in storage.
	Name string
	// MaxAge bounds a token's lifetime. Zero means tokens never expire
	// and live until logout or rotation.
	MaxAge time.Duration
}

func DefaultTokenConfig() TokenConfig {
	return TokenConfig{Name: "auth_token"}
}

// Tokens is the session token manager. It owns issuance, rotation and
// revocation of bearer tokens, and resolves bearer secrets back to their
// owning user.
type Tokens struct {
	config  TokenConfig
	storage core.Storage
	cache   core.Cache // optional, can be nil if caching is disabled
}

func NewTokens(config TokenConfig, storage core.Storage, cache core.Cache) *Tokens {
	if config.Name == "" {
		config.Name = "auth_token"
	}
	return &Tokens{config: config, storage: storage, cache: cache}
}

// IssueResult carries a freshly minted token. Secret is the plaintext
// value shown to the caller exactly once; only its hash is stored.
type IssueResult struct {
	Token  *core.Token
	Secret string
}

// Issue creates and persists a new token owned by user.
func (t *Tokens) Issue(ctx context.Context, user *core.User) (*IssueResult, error) {
	pair, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	id, err := crypto.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}

	token := &core.Token{
		ID:        id,
		UserID:    user.ID,
		Name:      t.config.Name,
		TokenHash: pair.Hash,
		CreatedAt: time.Now(),
	}

	if err := t.storage.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	// We don't fail the request if caching fails
	if t.cache != nil {
		_ = t.cache.Set(pair.Hash, token)
	}

	return &IssueResult{Token: token, Secret: pair.Token}, nil
}

// Authenticate resolves a bearer secret to its owner. Every client-caused
// failure reports core.ErrUnauthenticated so a revoked token is
// indistinguishable from one that never existed; store failures propagate
// as-is.
func (t *Tokens) Authenticate(ctx context.Context, secret string) (*core.User, *core.Token, error) {
	if secret == "" {
		return nil, nil, core.ErrUnauthenticated
	}

	tokenHash := crypto.HashToken(secret)

	var token *core.Token
	if t.cache != nil {
		if cached, err := t.cache.Get(tokenHash); err == nil {
			token = cached
		}
	}

	if token == nil {
		stored, err := t.storage.GetTokenByHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, core.ErrTokenNotFound) {
				return nil, nil, core.ErrUnauthenticated
			}
			return nil, nil, fmt.Errorf("failed to look up token: %w", err)
		}
		token = stored
	}

	valid, err := crypto.VerifyToken(secret, token.TokenHash)
	if err != nil || !valid {
		return nil, nil, core.ErrUnauthenticated
	}

	if t.config.MaxAge > 0 && time.Since(token.CreatedAt) > t.config.MaxAge {
		if t.cache != nil {
			_ = t.cache.Delete(tokenHash)
		}
		_ = t.storage.DeleteTokenByHash(ctx, tokenHash)
		return nil, nil, core.ErrUnauthenticated
	}

	user, err := t.storage.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, nil, core.ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("failed to load token owner: %w", err)
	}

	now := time.Now()
	token.LastUsedAt = &now
	// Best effort; a missed touch never fails authentication.
	_ = t.storage.TouchToken(ctx, token.ID, now)
	if t.cache != nil {
		_ = t.cache.Set(tokenHash, token)
	}

	return user, token, nil
}

// Logout revokes the token identified by the caller's current secret.
// Idempotent: a secret that no longer resolves to a token is treated as
// already logged out.
func (t *Tokens) Logout(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}

	tokenHash := crypto.HashToken(secret)

	if t.cache != nil {
		_ = t.cache.Delete(tokenHash)
	}

	if err := t.storage.DeleteTokenByHash(ctx, tokenHash); err != nil && !errors.Is(err, core.ErrTokenNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Refresh rotates the caller's bearer token: the current token is deleted
// first and the replacement issued after, so the old secret is unusable
// the moment rotation starts. A crash between the two steps leaves the
// user with no live token and forces a fresh login; it can never leave
// both secrets valid.
func (t *Tokens) Refresh(ctx context.Context, secret string, user *core.User) (*IssueResult, error) {
	if err := t.Logout(ctx, secret); err != nil {
		return nil, err
	}
	return t.Issue(ctx, user)
}

// RevokeAll deletes every token owned by userID and reports how many were
// removed.
func (t *Tokens) RevokeAll(ctx context.Context, userID string) (int, error) {
	if t.cache != nil {
		_ = t.cache.Clear()
	}

	n, err := t.storage.DeleteUserTokens(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}
	return n, nil
}
