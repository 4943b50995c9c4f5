package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func TestTranslate_IncomingDataRoot(t *testing.T) {
	ref := RefContext{UpstreamID: 1}

	out := Translate("={{ $json.name }}", schema.GraphToScenario, ref)
	assert.Equal(t, "{{1.name}}", out)

	back := Translate(out, schema.ScenarioToGraph, ref)
	assert.Equal(t, "={{ $json.name }}", back)
}

func TestTranslate_RootTable(t *testing.T) {
	ref := RefContext{UpstreamID: 3}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"env", "={{ $env.API_KEY }}", "{{env.API_KEY}}"},
		{"binary", "={{ $binary.data }}", "{{binary.data}}"},
		{"parameter", "={{ $parameter.limit }}", "{{parameters.limit}}"},
		{"workflow metadata", "={{ $workflow.name }}", "{{scenario.name}}"},
		{"upstream id", "={{ $json.total }}", "{{3.total}}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Translate(tc.in, schema.GraphToScenario, ref))
		})
	}
}

func TestTranslate_RootTableInverse(t *testing.T) {
	ref := RefContext{UpstreamID: 3}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"env", "{{env.API_KEY}}", "={{ $env.API_KEY }}"},
		{"parameters", "{{parameters.limit}}", "={{ $parameter.limit }}"},
		{"scenario metadata", "{{scenario.name}}", "={{ $workflow.name }}"},
		{"upstream id", "{{3.total}}", "={{ $json.total }}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Translate(tc.in, schema.ScenarioToGraph, ref))
		})
	}
}

func TestTranslate_NamedNodeReference(t *testing.T) {
	out := Translate(`={{ $node["Fetch"].json.total }}`, schema.GraphToScenario, RefContext{UpstreamID: 1})
	assert.Equal(t, "{{Fetch.total}}", out)

	back := Translate(out, schema.ScenarioToGraph, RefContext{UpstreamID: 1})
	assert.Equal(t, `={{ $node["Fetch"].json.total }}`, back)
}

func TestTranslate_NodeRefResolvesToModuleID(t *testing.T) {
	ref := RefContext{UpstreamID: 1, ModuleNames: map[int]string{2: "Send Request 2"}}
	out := Translate(`={{ $node["Send Request 2"].json.field }}`, schema.GraphToScenario, ref)
	assert.Equal(t, "{{2.field}}", out)

	back := Translate(out, schema.ScenarioToGraph, ref)
	assert.Equal(t, `={{ $node["Send Request 2"].json.field }}`, back)
}

func TestTranslate_UnresolvableNodeRefKeepsExpression(t *testing.T) {
	// "Other Node" is not a bare identifier and no id is known for it, so
	// there is no scenario root that would resolve back to it.
	in := `={{ $node["Other Node"].json.field }}`
	assert.Equal(t, in, Translate(in, schema.GraphToScenario, RefContext{UpstreamID: 1}))
}

func TestTranslate_NumericRefToNamedNode(t *testing.T) {
	ref := RefContext{UpstreamID: 1, ModuleNames: map[int]string{2: "Compute"}}
	out := Translate("{{2.total}}", schema.ScenarioToGraph, ref)
	assert.Equal(t, `={{ $node["Compute"].json.total }}`, out)
}

func TestTranslate_UnknownNumericRefPassesThrough(t *testing.T) {
	out := Translate("{{9.total}}", schema.ScenarioToGraph, RefContext{UpstreamID: 1})
	assert.Equal(t, "={{ 9.total }}", out)
}

func TestTranslate_FunctionNames(t *testing.T) {
	ref := RefContext{UpstreamID: 1}

	out := Translate(`={{ $if($json.ok, "yes", "no") }}`, schema.GraphToScenario, ref)
	assert.Equal(t, `{{if(1.ok, "yes", "no")}}`, out)

	out = Translate("={{ $json.name.toUpperCase() }}", schema.GraphToScenario, ref)
	assert.Equal(t, "{{1.name.upper()}}", out)

	out = Translate(`{{if(1.ok, "yes", "no")}}`, schema.ScenarioToGraph, ref)
	assert.Equal(t, `={{ $if($json.ok, "yes", "no") }}`, out)
}

func TestTranslate_ArgumentOrderPreserved(t *testing.T) {
	ref := RefContext{UpstreamID: 2}
	out := Translate(`={{ $json.name.replace("a", "b") }}`, schema.GraphToScenario, ref)
	assert.Equal(t, `{{2.name.replace("a", "b")}}`, out)
}

func TestTranslate_OperatorsAndLiteralsPassThrough(t *testing.T) {
	ref := RefContext{UpstreamID: 1}
	out := Translate(`={{ $json.count * 2 + 1 }}`, schema.GraphToScenario, ref)
	assert.Equal(t, "{{1.count * 2 + 1}}", out)
}

func TestTranslate_UnknownRootPassesThrough(t *testing.T) {
	ref := RefContext{UpstreamID: 1}
	out := Translate("={{ $vars.custom }}", schema.GraphToScenario, ref)
	assert.Equal(t, "{{$vars.custom}}", out)
}

func TestTranslate_MissingUpstreamKeepsRoot(t *testing.T) {
	out := Translate("={{ $json.name }}", schema.GraphToScenario, RefContext{})
	assert.Equal(t, "{{$json.name}}", out)
}

func TestTranslate_MalformedBodyReturnsInput(t *testing.T) {
	// Unterminated string literal cannot be lexed.
	in := `={{ "abc }}`
	assert.Equal(t, in, Translate(in, schema.GraphToScenario, RefContext{UpstreamID: 1}))

	// Non-expressions are never touched.
	assert.Equal(t, "plain", Translate("plain", schema.GraphToScenario, RefContext{}))
	assert.Equal(t, "={{ x", Translate("={{ x", schema.GraphToScenario, RefContext{}))
}

func TestTranslate_Deterministic(t *testing.T) {
	ref := RefContext{UpstreamID: 4}
	in := `={{ $if($json.a > 1, $json.b, $env.FALLBACK) }}`
	first := Translate(in, schema.GraphToScenario, ref)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Translate(in, schema.GraphToScenario, ref))
	}
}

// Round-tripping a translation preserves roots and function names even when
// whitespace differs.
func TestTranslate_RoundTripSemantics(t *testing.T) {
	ref := RefContext{UpstreamID: 1}
	exprs := []string{
		"={{ $json.name }}",
		"={{ $env.HOST + $json.path }}",
		`={{ $if($json.ok, "y", "n") }}`,
		"={{ $workflow.name }}",
		"={{ $parameter.limit - 1 }}",
	}
	for _, e := range exprs {
		there := Translate(e, schema.GraphToScenario, ref)
		back := Translate(there, schema.ScenarioToGraph, ref)
		assert.Equal(t, e, back, "round trip of %q", e)
	}
}
