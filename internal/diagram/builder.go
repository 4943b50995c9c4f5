package diagram

import (
	"fmt"
	"strings"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// BuildGraph constructs a Model from a graph workflow. When report is non-nil
// its per-node outcomes are attached as overlays, matched by node name.
func BuildGraph(wf *schema.GraphWorkflow, report *schema.ConversionReport) (*Model, error) {
	if wf == nil || len(wf.Nodes) == 0 {
		return nil, fmt.Errorf("diagram: workflow has no nodes")
	}
	overlays := overlayIndex(report)

	nodes := make([]*Node, 0, len(wf.Nodes))
	index := make(map[string]*Node, len(wf.Nodes))
	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		node := &Node{
			ID:      n.Name,
			Label:   n.Name,
			Type:    n.Type,
			Kind:    graphNodeKind(n.Type),
			Overlay: overlays[n.Name],
		}
		nodes = append(nodes, node)
		index[n.Name] = node
	}

	var edges []Edge
	incoming := make(map[string]int, len(wf.Nodes))
	for i := range wf.Nodes {
		src := wf.Nodes[i].Name
		group, ok := wf.Connections[src]
		if !ok {
			continue
		}
		multi := len(group.Main) > 1
		for port, links := range group.Main {
			for _, link := range links {
				if index[link.Node] == nil {
					continue
				}
				label := ""
				if multi {
					label = fmt.Sprintf("port %d", port)
				}
				edges = append(edges, Edge{From: src, To: link.Node, Label: label})
				incoming[link.Node]++
			}
		}
	}

	return &Model{
		Title:  wf.Name,
		Nodes:  nodes,
		Edges:  edges,
		Levels: graphLevels(wf, edges, incoming),
	}, nil
}

// BuildScenario constructs a Model from a scenario. Router branches become
// subgraph children of the router node, one per route.
func BuildScenario(sc *schema.Scenario, report *schema.ConversionReport) (*Model, error) {
	if sc == nil || len(sc.Flow) == 0 {
		return nil, fmt.Errorf("diagram: scenario has no modules")
	}
	overlays := overlayIndex(report)

	var nodes []*Node
	var edges []Edge
	var levels [][]string

	prev := ""
	for i := range sc.Flow {
		m := &sc.Flow[i]
		node := moduleToNode(m, overlays)
		for r := range m.Routes {
			route := &m.Routes[r]
			label := route.Label
			if label == "" {
				label = fmt.Sprintf("route %d", r+1)
			}
			node.Children = append(node.Children, routeSubGraph(label, route.Flow, overlays))
		}

		nodes = append(nodes, node)
		levels = append(levels, []string{node.ID})
		if prev != "" {
			edges = append(edges, Edge{From: prev, To: node.ID})
		}
		prev = node.ID
	}

	return &Model{
		Title:  sc.Name,
		Nodes:  nodes,
		Edges:  edges,
		Levels: levels,
	}, nil
}

func moduleToNode(m *schema.Module, overlays map[string]*ConversionOverlay) *Node {
	label := m.Metadata.Label
	if label == "" {
		label = m.Module
	}
	kind := moduleKind(m.Module)
	if len(m.Routes) > 0 {
		kind = NodeKindRouter
	}
	return &Node{
		ID:      fmt.Sprintf("m%d", m.ID),
		Label:   label,
		Type:    m.Module,
		Kind:    kind,
		Overlay: overlays[label],
	}
}

// routeSubGraph flattens one route's flow (including nested routes) into a
// subgraph with sequential edges.
func routeSubGraph(label string, flow []schema.Module, overlays map[string]*ConversionOverlay) *SubGraph {
	sg := &SubGraph{Label: label}
	appendRouteModules(sg, flow, overlays)
	for i := 1; i < len(sg.Nodes); i++ {
		sg.Edges = append(sg.Edges, Edge{From: sg.Nodes[i-1].ID, To: sg.Nodes[i].ID})
	}
	return sg
}

func appendRouteModules(sg *SubGraph, flow []schema.Module, overlays map[string]*ConversionOverlay) {
	for i := range flow {
		m := &flow[i]
		sg.Nodes = append(sg.Nodes, moduleToNode(m, overlays))
		for r := range m.Routes {
			appendRouteModules(sg, m.Routes[r].Flow, overlays)
		}
	}
}

// graphLevels computes a breadth-first layering of the workflow, starting from
// nodes with no incoming main link. Unreachable nodes land in a trailing level.
func graphLevels(wf *schema.GraphWorkflow, edges []Edge, incoming map[string]int) [][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	var current []string
	for i := range wf.Nodes {
		if incoming[wf.Nodes[i].Name] == 0 {
			current = append(current, wf.Nodes[i].Name)
		}
	}

	var levels [][]string
	seen := make(map[string]bool, len(wf.Nodes))
	for len(current) > 0 {
		var level, next []string
		for _, name := range current {
			if seen[name] {
				continue
			}
			seen[name] = true
			level = append(level, name)
			next = append(next, adj[name]...)
		}
		if len(level) > 0 {
			levels = append(levels, level)
		}
		current = next
	}

	var orphans []string
	for i := range wf.Nodes {
		if !seen[wf.Nodes[i].Name] {
			orphans = append(orphans, wf.Nodes[i].Name)
		}
	}
	if len(orphans) > 0 {
		levels = append(levels, orphans)
	}
	return levels
}

func graphNodeKind(nodeType string) NodeKind {
	lt := strings.ToLower(nodeType)
	switch {
	case strings.Contains(lt, "trigger"), strings.Contains(lt, "webhook"):
		return NodeKindTrigger
	case strings.HasSuffix(lt, ".if"), strings.HasSuffix(lt, ".switch"):
		return NodeKindRouter
	default:
		return NodeKindAction
	}
}

func moduleKind(moduleType string) NodeKind {
	switch moduleType {
	case "builtin:ManualRun", "builtin:Schedule", "webhook:CustomWebhook":
		return NodeKindTrigger
	case "builtin:BasicRouter":
		return NodeKindRouter
	default:
		return NodeKindAction
	}
}

// overlayIndex maps node names to conversion overlays.
func overlayIndex(report *schema.ConversionReport) map[string]*ConversionOverlay {
	if report == nil {
		return nil
	}
	out := make(map[string]*ConversionOverlay, len(report.Nodes))
	for i := range report.Nodes {
		nr := &report.Nodes[i]
		out[nr.Node] = &ConversionOverlay{
			Status:     string(nr.Status),
			TargetType: nr.TargetType,
			FlagCount:  len(nr.Flags),
		}
	}
	return out
}
