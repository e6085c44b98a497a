// Package schema holds the database schema the repositories expect.
package schema

import (
	"context"
	_ "embed"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var ddl string

// Apply creates any missing tables and indexes. It is safe to run repeatedly.
func Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, ddl)
	return err
}
