package convert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/flowmorph/flowmorph/internal/expressions"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

// GraphToScenario converts a graph workflow into a scenario. Every node gets
// a per-node entry in the report; unsupported node types are carried over
// with their original type string rather than rejected.
func (c *Converter) GraphToScenario(ctx context.Context, wf *schema.GraphWorkflow) (*schema.Scenario, *schema.ConversionReport, error) {
	if wf == nil || len(wf.Nodes) == 0 {
		return nil, nil, schema.NewError(schema.ErrCodeValidation, "graph workflow has no nodes")
	}

	report := &schema.ConversionReport{Direction: schema.GraphToScenario}
	walk := &graphWalk{
		conv:    c,
		wf:      wf,
		report:  report,
		visited: make(map[string]bool, len(wf.Nodes)),
		names:   make(map[int]string, len(wf.Nodes)),
		nextID:  1,
	}

	start := findStart(wf)
	flow := walk.chain(ctx, start.Name, 0)

	for i := range wf.Nodes {
		if !walk.visited[wf.Nodes[i].Name] {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("node %q is not reachable from the trigger; skipped", wf.Nodes[i].Name))
		}
	}

	sc := &schema.Scenario{
		Name: wf.Name,
		Flow: flow,
		Metadata: map[string]any{
			"source_format": string(schema.DialectGraph),
		},
	}

	c.logger.InfoContext(ctx, "graph workflow converted",
		slog.String("workflow", wf.Name),
		slog.Int("nodes", len(wf.Nodes)),
		slog.Int("flags", report.FlagCount()),
	)
	return sc, report, nil
}

// findStart picks the traversal root: the first node no other node links to.
func findStart(wf *schema.GraphWorkflow) *schema.GraphNode {
	incoming := make(map[string]bool)
	for _, group := range wf.Connections {
		for _, port := range group.Main {
			for _, link := range port {
				incoming[link.Node] = true
			}
		}
	}
	for i := range wf.Nodes {
		if !incoming[wf.Nodes[i].Name] {
			return &wf.Nodes[i]
		}
	}
	return &wf.Nodes[0]
}

// graphWalk is the per-conversion traversal state for one graph workflow.
type graphWalk struct {
	conv    *Converter
	wf      *schema.GraphWorkflow
	report  *schema.ConversionReport
	visited map[string]bool
	names   map[int]string
	nextID  int
}

// chain converts a linear run of nodes starting at name. A node with more
// than one outgoing link becomes a router module whose routes hold the
// converted branches.
func (g *graphWalk) chain(ctx context.Context, name string, upstreamID int) []schema.Module {
	var flow []schema.Module

	for name != "" {
		if g.visited[name] {
			g.report.Warnings = append(g.report.Warnings,
				fmt.Sprintf("connection cycle at node %q; traversal stopped", name))
			return flow
		}
		node := g.wf.NodeByName(name)
		if node == nil {
			g.report.Warnings = append(g.report.Warnings,
				fmt.Sprintf("connection references unknown node %q", name))
			return flow
		}
		g.visited[name] = true

		mod := g.convertNode(ctx, node, upstreamID)

		links := outgoingLinks(g.wf, name)
		switch {
		case len(links) == 0:
			flow = append(flow, mod)
			return flow

		case len(links) == 1:
			flow = append(flow, mod)
			upstreamID = mod.ID
			name = links[0].target

		default:
			for _, link := range links {
				route := schema.Route{
					Flow:  g.chain(ctx, link.target, mod.ID),
					Label: fmt.Sprintf("route %d", link.port+1),
				}
				mod.Routes = append(mod.Routes, route)
			}
			flow = append(flow, mod)
			return flow
		}
	}
	return flow
}

type outLink struct {
	port   int
	target string
}

// outgoingLinks flattens a node's main connections in port order.
func outgoingLinks(wf *schema.GraphWorkflow, name string) []outLink {
	group, ok := wf.Connections[name]
	if !ok {
		return nil
	}
	var links []outLink
	for port, fanout := range group.Main {
		for _, link := range fanout {
			links = append(links, outLink{port: port, target: link.Node})
		}
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].port < links[j].port })
	return links
}

// convertNode translates one node into a module and records its report entry.
func (g *graphWalk) convertNode(ctx context.Context, node *schema.GraphNode, upstreamID int) schema.Module {
	id := g.nextID
	g.nextID++
	g.names[id] = node.Name

	nr := schema.NodeReport{
		Node:       node.Name,
		SourceType: node.Type,
		Status:     schema.NodeStatusFull,
	}

	meta := map[string]any{
		"name":     node.Name,
		"type":     node.Type,
		"disabled": node.Disabled,
	}
	mapping, known, err := g.conv.catalog.ResolveGraphType(node.Type, node.Parameters, meta)
	if err != nil {
		g.report.Warnings = append(g.report.Warnings,
			fmt.Sprintf("mapping resolution failed for node %q: %s", node.Name, err.Error()))
		known = false
	}

	params := node.Parameters
	moduleType := node.Type
	version := 1
	if known {
		moduleType = mapping.ScenarioModule
		if mapping.ScenarioVersion > 0 {
			version = mapping.ScenarioVersion
		}
		nr.Status = mapping.Status
		var dropped []string
		params, dropped = mapping.GraphParams(node.Parameters)
		for _, key := range dropped {
			nr.Notes = append(nr.Notes, fmt.Sprintf("parameter %q has no counterpart; dropped", key))
		}
	} else {
		nr.Status = schema.NodeStatusUnsupported
		nr.Notes = append(nr.Notes, fmt.Sprintf("no mapping for node type %q; type carried over verbatim", node.Type))
	}
	nr.TargetType = moduleType

	var mapper map[string]any
	if params != nil {
		res := g.conv.proc.ProcessTree(ctx, params,
			schema.GraphToScenario, expressions.ModeTranslate,
			expressions.RefContext{UpstreamID: upstreamID, ModuleNames: g.names}, nil)
		mapper = asParamTree(res.Tree)
		nr.Flags = append(nr.Flags, res.Flags...)
	}

	if known && mapping.ScenarioModule == "builtin:Schedule" {
		if spec, ok := mapper["schedule"].(string); ok {
			if err := ValidateSchedule(spec); err != nil {
				nr.Flags = append(nr.Flags, schema.ReviewFlag{
					Path:   "schedule",
					Reason: err.Error(),
				})
			}
		}
	}

	if node.Disabled {
		nr.Notes = append(nr.Notes, "node is disabled in the source workflow")
	}

	mod := schema.Module{
		ID:      id,
		Module:  moduleType,
		Version: version,
		Mapper:  mapper,
		Metadata: schema.ModuleMetadata{
			Label: node.Name,
			Restore: map[string]any{
				"type":        node.Type,
				"typeVersion": node.TypeVersion,
			},
		},
	}
	if len(node.Position) == 2 {
		mod.Metadata.Designer = &schema.DesignerMeta{X: node.Position[0], Y: node.Position[1]}
	}

	g.report.Nodes = append(g.report.Nodes, nr)
	return mod
}
