// Package pgx implements core.Storage on PostgreSQL through a pgx/v5
// connection pool.
package pgx

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keralabs/passway/core"
)

type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.Storage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}
