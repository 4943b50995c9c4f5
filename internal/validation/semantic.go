package validation

import (
	"fmt"
	"sort"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// checkGraphSemantics runs the structural checks JSON Schema cannot express:
// duplicate node names, connections to unknown nodes, and connection cycles.
func checkGraphSemantics(wf *schema.GraphWorkflow) error {
	names := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if names[n.Name] {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate node name %q", n.Name)
		}
		names[n.Name] = true
	}

	for source, group := range wf.Connections {
		if !names[source] {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"connections reference unknown source node %q", source)
		}
		for _, port := range group.Main {
			for _, link := range port {
				if !names[link.Node] {
					return schema.NewErrorf(schema.ErrCodeValidation,
						"node %q links to unknown node %q", source, link.Node)
				}
			}
		}
	}

	if cycle := findCycle(wf); len(cycle) > 0 {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"connection cycle involving nodes %v", cycle)
	}
	return nil
}

// findCycle runs Kahn's algorithm over the main connections and returns the
// nodes left un-ordered, sorted for deterministic messages. Empty means
// acyclic.
func findCycle(wf *schema.GraphWorkflow) []string {
	inDegree := make(map[string]int, len(wf.Nodes))
	for _, n := range wf.Nodes {
		inDegree[n.Name] = 0
	}
	edges := make(map[string][]string)
	for source, group := range wf.Connections {
		for _, port := range group.Main {
			for _, link := range port {
				edges[source] = append(edges[source], link.Node)
				inDegree[link.Node]++
			}
		}
	}

	var queue []string
	for name, d := range inDegree {
		if d == 0 {
			queue = append(queue, name)
		}
	}

	ordered := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		ordered++
		for _, next := range edges[name] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if ordered == len(inDegree) {
		return nil
	}
	var cycle []string
	for name, d := range inDegree {
		if d > 0 {
			cycle = append(cycle, name)
		}
	}
	sort.Strings(cycle)
	return cycle
}

// checkScenarioSemantics verifies module ids are unique across the whole
// scenario, routes included.
func checkScenarioSemantics(sc *schema.Scenario) error {
	seen := make(map[int]bool)
	return checkFlowIDs(sc.Flow, seen)
}

func checkFlowIDs(flow []schema.Module, seen map[int]bool) error {
	for i := range flow {
		mod := &flow[i]
		if seen[mod.ID] {
			return schema.NewError(schema.ErrCodeValidation,
				fmt.Sprintf("duplicate module id %d", mod.ID))
		}
		seen[mod.ID] = true
		for r := range mod.Routes {
			if err := checkFlowIDs(mod.Routes[r].Flow, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
