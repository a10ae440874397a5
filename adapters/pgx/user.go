package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/keralabs/passway/core"
)

const userColumns = `id, name, email, password_hash, user_role, email_verified_at, created_at, updated_at`

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := a.pool.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.EmailVerifiedAt, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.ErrUserExists
		}
		return err
	}
	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(a.pool.QueryRow(ctx, q, email))
}

func (a *Adapter) UpdateUser(ctx context.Context, user *core.User) error {
	q := `UPDATE users
	      SET name = $1, email = $2, password_hash = $3, user_role = $4,
	          email_verified_at = $5, updated_at = $6
	      WHERE id = $7`

	tag, err := a.pool.Exec(ctx, q,
		user.Name, user.Email, user.PasswordHash, user.Role,
		user.EmailVerifiedAt, user.UpdatedAt, user.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) ListUsers(ctx context.Context, filter core.UserFilter) ([]*core.User, int, error) {
	var total int
	countQ := `SELECT count(*) FROM users WHERE ($1 = '' OR user_role = $1)`
	if err := a.pool.QueryRow(ctx, countQ, filter.Role).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + userColumns + ` FROM users
	      WHERE ($1 = '' OR user_role = $1)
	      ORDER BY created_at DESC
	      LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, q, filter.Role, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*core.User
	for rows.Next() {
		user := &core.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
			&user.Role, &user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func scanUser(row pgx.Row) (*core.User, error) {
	user := &core.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
