package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEngine_Run(t *testing.T) {
	e := NewQueryEngine()
	doc := map[string]any{
		"flow": []any{
			map[string]any{"id": 1, "module": "http:ActionSendData"},
			map[string]any{"id": 2, "module": "json:ParseJSON"},
		},
	}

	t.Run("single output", func(t *testing.T) {
		out, err := e.Run(context.Background(), ".flow[0].module", doc)
		require.NoError(t, err)
		assert.Equal(t, "http:ActionSendData", out)
	})

	t.Run("multiple outputs collected", func(t *testing.T) {
		out, err := e.Run(context.Background(), ".flow[].id", doc)
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2}, out)
	})

	t.Run("no output", func(t *testing.T) {
		out, err := e.Run(context.Background(), ".flow[] | select(.id > 5)", doc)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := e.Run(context.Background(), "", doc)
		require.Error(t, err)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := e.Run(context.Background(), ".[unterminated", doc)
		require.Error(t, err)
	})

	t.Run("env access is blocked", func(t *testing.T) {
		t.Setenv("FLOWMORPH_SECRET", "value")
		out, err := e.Run(context.Background(), `env.FLOWMORPH_SECRET`, nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestQueryEngine_CachesCompiledQueries(t *testing.T) {
	e := NewQueryEngine()

	_, err := e.Run(context.Background(), ".a", map[string]any{"a": 1})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), ".a", map[string]any{"a": 2})
	require.NoError(t, err)

	e.mu.RLock()
	defer e.mu.RUnlock()
	assert.Len(t, e.cache, 1)
}
