package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func TestNewSandboxEngine(t *testing.T) {
	e := NewSandboxEngine()
	assert.NotNil(t, e)
	assert.Equal(t, "sandbox", e.Name())
}

func TestSandboxEngine_ImplementsEngine(t *testing.T) {
	var _ Engine = (*SandboxEngine)(nil)
}

// --- literals ---

func TestSandbox_Literals(t *testing.T) {
	e := NewSandboxEngine()

	t.Run("number", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), "42", nil)
		require.NoError(t, err)
		assert.Equal(t, float64(42), out)
	})

	t.Run("string", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), `"hello"`, nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
	})

	t.Run("single-quoted string", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), `'world'`, nil)
		require.NoError(t, err)
		assert.Equal(t, "world", out)
	})

	t.Run("booleans and null", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), "true", nil)
		require.NoError(t, err)
		assert.Equal(t, true, out)

		out, err = e.Evaluate(context.Background(), "null", nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	})
}

// --- property access ---

func TestSandbox_PropertyChains(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{
		"$json": map[string]any{
			"user": map[string]any{"name": "ada"},
			"tags": []any{"a", "b"},
		},
	}

	out, err := e.Evaluate(context.Background(), "$json.user.name", data)
	require.NoError(t, err)
	assert.Equal(t, "ada", out)

	out, err = e.Evaluate(context.Background(), "$json.tags[1]", data)
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	out, err = e.Evaluate(context.Background(), `$json["user"].name`, data)
	require.NoError(t, err)
	assert.Equal(t, "ada", out)
}

func TestSandbox_MissingReferenceResolvesToNil(t *testing.T) {
	e := NewSandboxEngine()

	out, err := e.Evaluate(context.Background(), "$json.missing", map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = e.Evaluate(context.Background(), "$json.deeply.nested.path", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSandbox_NumericUpstreamRoot(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"1": map[string]any{"name": "ada"}}

	out, err := e.Evaluate(context.Background(), "1.name", data)
	require.NoError(t, err)
	assert.Equal(t, "ada", out)
}

// --- string concatenation ---

// Regression for the historical defect: "+" with a string operand must
// produce a concatenated string, never a numeric-coercion artifact.
func TestSandbox_StringConcatenation(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"$json": map[string]any{"id": "12345"}}

	out, err := e.Evaluate(context.Background(), `"https://example.com/api/" + $json.id`, data)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/12345", out)
}

func TestSandbox_ConcatenationWithNumber(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"$json": map[string]any{"n": float64(7)}}

	out, err := e.Evaluate(context.Background(), `"item-" + $json.n`, data)
	require.NoError(t, err)
	assert.Equal(t, "item-7", out)
}

func TestSandbox_ConcatenationPreservesWhitespace(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"$json": map[string]any{"a": "x", "b": "y"}}

	out, err := e.Evaluate(context.Background(), `$json.a + "  " + $json.b`, data)
	require.NoError(t, err)
	assert.Equal(t, "x  y", out)
}

func TestSandbox_ConcatenationWithNilRendersEmpty(t *testing.T) {
	e := NewSandboxEngine()

	out, err := e.Evaluate(context.Background(), `"prefix-" + $json.missing`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "prefix-", out)
}

// --- arithmetic ---

func TestSandbox_Arithmetic(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"a": float64(10), "b": float64(3)}

	tests := []struct {
		expr string
		want float64
	}{
		{"a + b", 13},
		{"a - b", 7},
		{"a * b", 30},
		{"a % b", 1},
		{"-a + 1", -9},
		{"(a + b) * 2", 26},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tc.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestSandbox_DivisionByZero(t *testing.T) {
	e := NewSandboxEngine()

	_, err := e.Evaluate(context.Background(), "1 / 0", nil)
	require.Error(t, err)
	var cerr *schema.ConvertError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, schema.ErrCodeEvaluation, cerr.Code)
}

// --- conditionals and comparisons ---

func TestSandbox_Ternary(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"$json": map[string]any{"n": float64(5)}}

	out, err := e.Evaluate(context.Background(), `$json.n > 3 ? "big" : "small"`, data)
	require.NoError(t, err)
	assert.Equal(t, "big", out)

	out, err = e.Evaluate(context.Background(), `$json.n > 10 ? "big" : "small"`, data)
	require.NoError(t, err)
	assert.Equal(t, "small", out)
}

func TestSandbox_Comparisons(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"n": float64(5), "s": "abc"}

	tests := []struct {
		expr string
		want bool
	}{
		{"n == 5", true},
		{"n != 5", false},
		{"n >= 5", true},
		{"n < 5", false},
		{`s == "abc"`, true},
		{`s < "abd"`, true},
		{"n == 5 && s == \"abc\"", true},
		{"n == 6 || s == \"abc\"", true},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tc.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestSandbox_NilCoalescing(t *testing.T) {
	e := NewSandboxEngine()

	out, err := e.Evaluate(context.Background(), `$json.missing ?? "default"`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "default", out)
}

// --- literals construction ---

func TestSandbox_ObjectAndArrayLiterals(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"$json": map[string]any{"id": "7"}}

	out, err := e.Evaluate(context.Background(), `{ id: $json.id, tags: ["a", 2] }`, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":   "7",
		"tags": []any{"a", float64(2)},
	}, out)
}

// --- builtins ---

func TestSandbox_Builtins(t *testing.T) {
	e := NewSandboxEngine()
	data := map[string]any{"$json": map[string]any{"name": "  Ada  "}}

	tests := []struct {
		expr string
		want any
	}{
		{`upper("go")`, "GO"},
		{`$json.name.trim()`, "Ada"},
		{`$json.name.trim().toUpperCase()`, "ADA"},
		{`$if(true, 1, 2)`, float64(1)},
		{`if(false, 1, 2)`, float64(2)},
		{`contains("workflow", "flow")`, true},
		{`"a,b,c".split(",").length`, float64(3)},
		{`join(["a", "b"], "-")`, "a-b"},
		{`min(3, 1, 2)`, float64(1)},
		{`max(3, 1, 2)`, float64(3)},
		{`round(1.6)`, float64(2)},
		{`length("abcd")`, float64(4)},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tc.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestSandbox_FormatDate(t *testing.T) {
	e := NewSandboxEngine()

	out, err := e.Evaluate(context.Background(),
		`formatDate("2024-03-09T10:30:00Z", "YYYY-MM-DD")`, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", out)
}

func TestSandbox_UnknownFunctionFails(t *testing.T) {
	e := NewSandboxEngine()

	_, err := e.Evaluate(context.Background(), "mystery(1)", nil)
	require.Error(t, err)
}

// --- failure modes ---

func TestSandbox_ParseErrors(t *testing.T) {
	e := NewSandboxEngine()

	for _, expr := range []string{"", "   ", "a +", "foo(", `"unterminated`, "a ? b", "x => x"} {
		t.Run(expr, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), expr, nil)
			require.Error(t, err)
		})
	}
}

func TestSandbox_DeepNestingFailsCleanly(t *testing.T) {
	e := NewSandboxEngine()

	expr := ""
	for i := 0; i < 200; i++ {
		expr += "("
	}
	expr += "1"
	for i := 0; i < 200; i++ {
		expr += ")"
	}

	_, err := e.Evaluate(context.Background(), expr, nil)
	require.Error(t, err)
}

func TestSandbox_CancelledContext(t *testing.T) {
	e := NewSandboxEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Small expressions may finish before the budget check fires; either a
	// result or a timeout error is acceptable, it must just not hang.
	_, _ = e.Evaluate(ctx, "1 + 1", nil)
}
