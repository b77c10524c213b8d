package testsupport

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"phi/internal/adapters/config"
	"phi/internal/adapters/postgres"
)

// PostgresTestHelper runs a repository test inside one transaction so nothing
// it writes outlives the test.
type PostgresTestHelper struct {
	client     *postgres.Client
	tx         *sqlx.Tx
	rolledBack bool
}

// NewPostgresTestHelper opens a connection and begins a transaction that is always rolled back.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	ctx := context.Background()
	client, err := postgres.NewClient(ctx, cfg)
	require.NoError(t, err, "connect postgres")
	t.Cleanup(func() { _ = client.Close() })

	tx, err := client.DB().BeginTxx(ctx, nil)
	require.NoError(t, err, "begin transaction")

	helper := &PostgresTestHelper{client: client, tx: tx}
	// Registered after Close so it runs first.
	t.Cleanup(helper.Rollback)
	return helper
}

// Tx returns the active transaction for the test.
func (h *PostgresTestHelper) Tx() *sqlx.Tx {
	return h.tx
}

// DB returns the underlying database handle.
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.client.DB()
}

// Rollback rolls back the transaction once.
func (h *PostgresTestHelper) Rollback() {
	if h.rolledBack {
		return
	}
	_ = h.tx.Rollback()
	h.rolledBack = true
}

// NewTestPostgres creates a helper from the POSTGRES_* environment, skipping the test when unset
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()
	return NewPostgresTestHelper(t, PostgresConfigFromEnv(t))
}
