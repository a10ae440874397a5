// Package migrations embeds the SQL schema migrations for the pgx adapter.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
