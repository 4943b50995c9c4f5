package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func linearWorkflow() *schema.GraphWorkflow {
	return &schema.GraphWorkflow{
		Name: "Linear",
		Nodes: []schema.GraphNode{
			{Name: "Start", Type: "flow-nodes.manualTrigger"},
			{Name: "Fetch", Type: "flow-nodes.httpRequest"},
			{Name: "Store", Type: "flow-nodes.set"},
		},
		Connections: map[string]schema.NodeConnGroup{
			"Start": {Main: [][]schema.NodeLink{{{Node: "Fetch"}}}},
			"Fetch": {Main: [][]schema.NodeLink{{{Node: "Store"}}}},
		},
	}
}

func branchingWorkflow() *schema.GraphWorkflow {
	return &schema.GraphWorkflow{
		Name: "Branching",
		Nodes: []schema.GraphNode{
			{Name: "Start", Type: "flow-nodes.webhook"},
			{Name: "Check", Type: "flow-nodes.if"},
			{Name: "Yes", Type: "flow-nodes.set"},
			{Name: "No", Type: "flow-nodes.set"},
		},
		Connections: map[string]schema.NodeConnGroup{
			"Start": {Main: [][]schema.NodeLink{{{Node: "Check"}}}},
			"Check": {Main: [][]schema.NodeLink{
				{{Node: "Yes"}},
				{{Node: "No"}},
			}},
		},
	}
}

func routedScenario() *schema.Scenario {
	return &schema.Scenario{
		Name: "Routed",
		Flow: []schema.Module{
			{ID: 1, Module: "builtin:ManualRun", Metadata: schema.ModuleMetadata{Label: "Start"}},
			{ID: 2, Module: "builtin:BasicRouter", Metadata: schema.ModuleMetadata{Label: "Check"}, Routes: []schema.Route{
				{Label: "high", Flow: []schema.Module{
					{ID: 3, Module: "tools:SetVariables", Metadata: schema.ModuleMetadata{Label: "Yes"}},
				}},
				{Flow: []schema.Module{
					{ID: 4, Module: "tools:SetVariables", Metadata: schema.ModuleMetadata{Label: "No"}},
				}},
			}},
		},
	}
}

func TestBuildGraphLinear(t *testing.T) {
	model, err := BuildGraph(linearWorkflow(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Linear", model.Title)
	require.Len(t, model.Nodes, 3)
	assert.Equal(t, NodeKindTrigger, model.Nodes[0].Kind)
	assert.Equal(t, NodeKindAction, model.Nodes[1].Kind)

	require.Len(t, model.Edges, 2)
	assert.Equal(t, Edge{From: "Start", To: "Fetch"}, model.Edges[0])
	assert.Equal(t, Edge{From: "Fetch", To: "Store"}, model.Edges[1])

	require.Len(t, model.Levels, 3)
	assert.Equal(t, []string{"Start"}, model.Levels[0])
	assert.Equal(t, []string{"Store"}, model.Levels[2])
}

func TestBuildGraphBranching(t *testing.T) {
	model, err := BuildGraph(branchingWorkflow(), nil)
	require.NoError(t, err)

	check := findNode(model.Nodes, "Check")
	require.NotNil(t, check)
	assert.Equal(t, NodeKindRouter, check.Kind)

	// Multi-port edges carry port labels.
	var labels []string
	for _, e := range model.Edges {
		if e.From == "Check" {
			labels = append(labels, e.Label)
		}
	}
	assert.ElementsMatch(t, []string{"port 0", "port 1"}, labels)

	// Yes and No share a level.
	require.Len(t, model.Levels, 3)
	assert.ElementsMatch(t, []string{"Yes", "No"}, model.Levels[2])
}

func TestBuildGraphDisconnected(t *testing.T) {
	wf := linearWorkflow()
	// A node with no links at all becomes an extra root.
	wf.Nodes = append(wf.Nodes, schema.GraphNode{Name: "Island", Type: "flow-nodes.set"})
	// A detached two-node cycle is unreachable from any root and lands in the
	// trailing level.
	wf.Nodes = append(wf.Nodes,
		schema.GraphNode{Name: "LoopA", Type: "flow-nodes.set"},
		schema.GraphNode{Name: "LoopB", Type: "flow-nodes.set"})
	wf.Connections["LoopA"] = schema.NodeConnGroup{Main: [][]schema.NodeLink{{{Node: "LoopB"}}}}
	wf.Connections["LoopB"] = schema.NodeConnGroup{Main: [][]schema.NodeLink{{{Node: "LoopA"}}}}

	model, err := BuildGraph(wf, nil)
	require.NoError(t, err)

	assert.Contains(t, model.Levels[0], "Island")
	last := model.Levels[len(model.Levels)-1]
	assert.ElementsMatch(t, []string{"LoopA", "LoopB"}, last)
}

func TestBuildGraphEmpty(t *testing.T) {
	_, err := BuildGraph(&schema.GraphWorkflow{}, nil)
	require.Error(t, err)
	_, err = BuildGraph(nil, nil)
	require.Error(t, err)
}

func TestBuildGraphWithReport(t *testing.T) {
	report := &schema.ConversionReport{
		Direction: schema.GraphToScenario,
		Nodes: []schema.NodeReport{
			{Node: "Start", SourceType: "flow-nodes.manualTrigger", TargetType: "builtin:ManualRun", Status: schema.NodeStatusFull},
			{Node: "Fetch", SourceType: "flow-nodes.httpRequest", TargetType: "http:SendRequest", Status: schema.NodeStatusPartial,
				Flags: []schema.ReviewFlag{{Path: "url", Reason: "x"}, {Path: "body", Reason: "y"}}},
		},
	}

	model, err := BuildGraph(linearWorkflow(), report)
	require.NoError(t, err)

	fetch := findNode(model.Nodes, "Fetch")
	require.NotNil(t, fetch.Overlay)
	assert.Equal(t, "partial", fetch.Overlay.Status)
	assert.Equal(t, 2, fetch.Overlay.FlagCount)
	assert.Equal(t, "http:SendRequest", fetch.Overlay.TargetType)

	store := findNode(model.Nodes, "Store")
	assert.Nil(t, store.Overlay)
}

func TestBuildScenarioLinear(t *testing.T) {
	sc := &schema.Scenario{
		Name: "Linear",
		Flow: []schema.Module{
			{ID: 1, Module: "builtin:ManualRun"},
			{ID: 2, Module: "http:SendRequest", Metadata: schema.ModuleMetadata{Label: "Fetch"}},
		},
	}

	model, err := BuildScenario(sc, nil)
	require.NoError(t, err)

	require.Len(t, model.Nodes, 2)
	assert.Equal(t, "m1", model.Nodes[0].ID)
	assert.Equal(t, "builtin:ManualRun", model.Nodes[0].Label)
	assert.Equal(t, NodeKindTrigger, model.Nodes[0].Kind)
	assert.Equal(t, "Fetch", model.Nodes[1].Label)

	require.Len(t, model.Edges, 1)
	assert.Equal(t, Edge{From: "m1", To: "m2"}, model.Edges[0])
	assert.Equal(t, [][]string{{"m1"}, {"m2"}}, model.Levels)
}

func TestBuildScenarioRoutes(t *testing.T) {
	model, err := BuildScenario(routedScenario(), nil)
	require.NoError(t, err)

	router := findNode(model.Nodes, "m2")
	require.NotNil(t, router)
	assert.Equal(t, NodeKindRouter, router.Kind)
	require.Len(t, router.Children, 2)

	assert.Equal(t, "high", router.Children[0].Label)
	assert.Equal(t, "route 2", router.Children[1].Label)
	require.Len(t, router.Children[0].Nodes, 1)
	assert.Equal(t, "Yes", router.Children[0].Nodes[0].Label)
}

func TestBuildScenarioEmpty(t *testing.T) {
	_, err := BuildScenario(&schema.Scenario{}, nil)
	require.Error(t, err)
}
