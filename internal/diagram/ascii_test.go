package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func TestRenderASCIILinear(t *testing.T) {
	model, err := BuildGraph(linearWorkflow(), nil)
	require.NoError(t, err)

	out := RenderASCII(model)

	assert.Contains(t, out, "=== Linear ===")
	assert.Contains(t, out, "Start")
	assert.Contains(t, out, "flow-nodes.httpRequest")
	// Box borders and level connectors.
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "▼")
}

func TestRenderASCIIOverlay(t *testing.T) {
	report := &schema.ConversionReport{
		Nodes: []schema.NodeReport{
			{Node: "Fetch", Status: schema.NodeStatusPartial,
				Flags: []schema.ReviewFlag{{Path: "a", Reason: "x"}, {Path: "b", Reason: "y"}}},
		},
	}
	model, err := BuildGraph(linearWorkflow(), report)
	require.NoError(t, err)

	out := RenderASCII(model)

	assert.Contains(t, out, "[PARTIAL]")
	assert.Contains(t, out, "2 flags")
}

func TestRenderASCIIRoutes(t *testing.T) {
	model, err := BuildScenario(routedScenario(), nil)
	require.NoError(t, err)

	out := RenderASCII(model)

	assert.Contains(t, out, "--- Check branches ---")
	assert.Contains(t, out, "[high]")
	assert.Contains(t, out, "[route 2]")
	assert.Contains(t, out, "Yes (tools:SetVariables)")
}

func TestRenderASCIISideBySide(t *testing.T) {
	model, err := BuildGraph(branchingWorkflow(), nil)
	require.NoError(t, err)

	out := RenderASCII(model)

	// Yes and No boxes share one level row.
	var rowWithBoth bool
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Yes") && strings.Contains(line, "No") {
			rowWithBoth = true
		}
	}
	assert.True(t, rowWithBoth, "parallel branches should render side by side")
}
