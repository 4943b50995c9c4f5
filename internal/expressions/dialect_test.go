package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func TestIsExpression_Graph(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"simple reference", "={{ $json.name }}", true},
		{"no inner padding", "={{$json.name}}", true},
		{"concatenation", `={{ "a" + $json.b }}`, true},
		{"scenario wrapper is not graph", "{{1.name}}", false},
		{"plain string", "hello", false},
		{"equals without braces", "=hello", false},
		{"missing closing braces", "={{ $json.name", false},
		{"number", 42, false},
		{"bool", true, false},
		{"nil", nil, false},
		{"map", map[string]any{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsExpression(tc.value, schema.DialectGraph))
		})
	}
}

func TestIsExpression_Scenario(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"numeric root", "{{1.name}}", true},
		{"keyword root", "{{parameters.value}}", true},
		{"padded", "{{ env.API_KEY }}", true},
		{"graph wrapper is not scenario", "={{ $json.name }}", false},
		{"plain string", "hello", false},
		{"unclosed", "{{1.name", false},
		{"number", 3.14, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsExpression(tc.value, schema.DialectScenario))
		})
	}
}

func TestIsExpression_PlainStringsMatchNeitherDialect(t *testing.T) {
	plain := []string{"", "x", "a {{ inline }} b", "= {{ spaced }}", "{x}"}
	for _, s := range plain {
		assert.False(t, IsExpression(s, schema.DialectGraph), "graph: %q", s)
		assert.False(t, IsExpression(s, schema.DialectScenario), "scenario: %q", s)
	}
}

func TestBodyAndWrap(t *testing.T) {
	assert.Equal(t, "$json.name", body("={{ $json.name }}", schema.DialectGraph))
	assert.Equal(t, "1.name", body("{{1.name}}", schema.DialectScenario))
	assert.Equal(t, "={{ x }}", wrap("x", schema.DialectGraph))
	assert.Equal(t, "{{x}}", wrap("x", schema.DialectScenario))
}
