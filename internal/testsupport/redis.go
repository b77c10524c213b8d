package testsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"phi/internal/adapters/redis"
)

// NewRedis connects the phi redis adapter to the integration database from the
// environment. The database is flushed before the test and again on cleanup.
func NewRedis(t *testing.T) *redis.Client {
	t.Helper()

	client, err := redis.NewClient(RedisConfigFromEnv(t))
	require.NoError(t, err, "connect redis")

	flush := func() error { return client.Client().FlushDB(context.Background()).Err() }
	require.NoError(t, flush(), "flush redis before test")

	t.Cleanup(func() {
		_ = flush()
		_ = client.Close()
	})
	return client
}
