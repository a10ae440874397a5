package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keralabs/passway/core"
)

const tokenColumns = `id, user_id, name, token_hash, created_at, last_used_at`

func (a *Adapter) CreateToken(ctx context.Context, token *core.Token) error {
	q := `INSERT INTO tokens (` + tokenColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.pool.Exec(ctx, q,
		token.ID, token.UserID, token.Name, token.TokenHash,
		token.CreatedAt, token.LastUsedAt)
	return err
}

func (a *Adapter) GetTokenByHash(ctx context.Context, hash string) (*core.Token, error) {
	q := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_hash = $1`

	token := &core.Token{}
	err := a.pool.QueryRow(ctx, q, hash).Scan(&token.ID, &token.UserID, &token.Name,
		&token.TokenHash, &token.CreatedAt, &token.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

func (a *Adapter) DeleteTokenByHash(ctx context.Context, hash string) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM tokens WHERE token_hash = $1`, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrTokenNotFound
	}
	return nil
}

func (a *Adapter) DeleteUserTokens(ctx context.Context, userID string) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) TouchToken(ctx context.Context, id string, usedAt time.Time) error {
	_, err := a.pool.Exec(ctx, `UPDATE tokens SET last_used_at = $1 WHERE id = $2`, usedAt, id)
	return err
}
