package postgres

import (
	"context"
	_ "embed"

	"phi/pkg/errors"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables used by the repositories. It is idempotent.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}
