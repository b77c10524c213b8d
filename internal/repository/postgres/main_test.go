package postgres

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"phi/internal/testsupport"
)

// newTestTx returns a migrated transaction that is rolled back after the test
func newTestTx(t *testing.T) *sqlx.Tx {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	helper := testsupport.NewTestPostgres(t)
	tx := helper.Tx()
	if err := Migrate(context.Background(), tx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return tx
}
