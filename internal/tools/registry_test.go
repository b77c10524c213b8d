package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/pkg/errors"
)

func echoTool(name string) Tool {
	return New(name, "echo the query", QuerySchema("text to echo"), func(_ context.Context, args map[string]interface{}) (string, error) {
		return StringArg(args, "query")
	})
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	t.Run("Register and Get", func(t *testing.T) {
		registry.Register(echoTool("tavily-search"))

		got, ok := registry.Get("tavily-search")
		require.True(t, ok)
		assert.Equal(t, "tavily-search", got.Name())

		_, ok = registry.Get("unknown")
		assert.False(t, ok)
	})

	t.Run("List sorted", func(t *testing.T) {
		registry.Register(echoTool("alpha"))
		assert.Equal(t, []string{"alpha", "tavily-search"}, registry.List())
	})

	t.Run("Definition", func(t *testing.T) {
		tool, _ := registry.Get("tavily-search")
		def := Definition(tool)
		assert.Equal(t, "function", def.Type)
		assert.Equal(t, "tavily-search", def.Function.Name)
		assert.Equal(t, []string{"query"}, def.Function.Parameters["required"])
	})

	t.Run("nil registry lookup", func(t *testing.T) {
		var r *Registry
		_, ok := r.Get("tavily-search")
		assert.False(t, ok)
	})
}

func TestStringArg(t *testing.T) {
	out, err := echoTool("e").Execute(context.Background(), map[string]interface{}{"query": "btc"})
	require.NoError(t, err)
	assert.Equal(t, "btc", out)

	_, err = StringArg(map[string]interface{}{}, "query")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = StringArg(map[string]interface{}{"query": 42.0}, "query")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestFunctionTool_NoHandler(t *testing.T) {
	_, err := New("broken", "", nil, nil).Execute(context.Background(), nil)
	assert.Error(t, err)
}
