package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/pkg/errors"
)

type fixedCounter struct {
	n   int
	err error
}

func (f fixedCounter) Count(context.Context) (int, error) { return f.n, f.err }

func TestStoreCollector(t *testing.T) {
	c := NewStoreCollector(map[string]Counter{
		"ledger_records": fixedCounter{n: 3},
		"predictions":    fixedCounter{n: 7},
		"broken":         fixedCounter{err: errors.ErrUnavailable},
	})

	expected := `
# HELP phi_store_items Number of items held by a store
# TYPE phi_store_items gauge
phi_store_items{store="ledger_records"} 3
phi_store_items{store="predictions"} 7
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
	assert.Equal(t, 2, testutil.CollectAndCount(c))
}

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(StoreOperations.WithLabelValues("file", "append", "error"))
	RecordStoreOperation("file", "append", errors.ErrInternal)
	assert.Equal(t, before+1, testutil.ToFloat64(StoreOperations.WithLabelValues("file", "append", "error")))
}
