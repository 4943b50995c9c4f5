package convert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/flowmorph/flowmorph/internal/expressions"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

// ScenarioToGraph converts a scenario into a graph workflow. Router routes
// become fan-out connections from the router node's output ports.
func (c *Converter) ScenarioToGraph(ctx context.Context, sc *schema.Scenario) (*schema.GraphWorkflow, *schema.ConversionReport, error) {
	if sc == nil || len(sc.Flow) == 0 {
		return nil, nil, schema.NewError(schema.ErrCodeValidation, "scenario has no modules")
	}

	report := &schema.ConversionReport{Direction: schema.ScenarioToGraph}
	wf := &schema.GraphWorkflow{
		Name:        sc.Name,
		Connections: make(map[string]schema.NodeConnGroup),
		Meta: map[string]any{
			"source_format": string(schema.DialectScenario),
		},
	}

	walk := &scenarioWalk{
		conv:   c,
		wf:     wf,
		report: report,
		names:  moduleNames(sc.Flow),
	}
	walk.chain(ctx, sc.Flow, "", 0, 0)

	c.logger.InfoContext(ctx, "scenario converted",
		slog.String("scenario", sc.Name),
		slog.Int("modules", len(walk.names)),
		slog.Int("flags", report.FlagCount()),
	)
	return wf, report, nil
}

// moduleNames assigns every module a unique node name up front, so forward
// references in expressions resolve regardless of traversal order. The
// designer label wins; otherwise the name derives from the module type.
func moduleNames(flow []schema.Module) map[int]string {
	names := make(map[int]string)
	used := make(map[string]int)

	var visit func(flow []schema.Module)
	visit = func(flow []schema.Module) {
		for i := range flow {
			mod := &flow[i]
			base := mod.Metadata.Label
			if base == "" {
				base = typeBaseName(mod.Module)
			}
			name := base
			used[base]++
			if n := used[base]; n > 1 {
				name = fmt.Sprintf("%s %d", base, n)
			}
			names[mod.ID] = name
			for r := range mod.Routes {
				visit(mod.Routes[r].Flow)
			}
		}
	}
	visit(flow)
	return names
}

// typeBaseName turns "http:SendRequest" into "SendRequest".
func typeBaseName(moduleType string) string {
	if i := strings.LastIndex(moduleType, ":"); i >= 0 && i+1 < len(moduleType) {
		return moduleType[i+1:]
	}
	if moduleType == "" {
		return "Module"
	}
	return moduleType
}

// scenarioWalk is the per-conversion traversal state for one scenario.
type scenarioWalk struct {
	conv   *Converter
	wf     *schema.GraphWorkflow
	report *schema.ConversionReport
	names  map[int]string
	column int
}

// chain converts one flow. parentName/parentPort identify the connection
// point for the first module; empty parentName means this is the root flow.
func (s *scenarioWalk) chain(ctx context.Context, flow []schema.Module, parentName string, parentPort int, upstreamID int) {
	prevName := parentName
	prevPort := parentPort

	for i := range flow {
		mod := &flow[i]
		node := s.convertModule(ctx, mod, upstreamID)
		s.wf.Nodes = append(s.wf.Nodes, node)

		if prevName != "" {
			s.addLink(prevName, prevPort, node.Name)
		}

		for r := range mod.Routes {
			s.chain(ctx, mod.Routes[r].Flow, node.Name, r, mod.ID)
		}

		prevName = node.Name
		prevPort = 0
		if len(mod.Routes) > 0 {
			// Anything after a router in the same flow hangs off the port
			// past its routes.
			prevPort = len(mod.Routes)
		}
		upstreamID = mod.ID
	}
}

// addLink appends an edge from one node's output port to another node.
func (s *scenarioWalk) addLink(from string, port int, to string) {
	group := s.wf.Connections[from]
	for len(group.Main) <= port {
		group.Main = append(group.Main, nil)
	}
	group.Main[port] = append(group.Main[port], schema.NodeLink{
		Node: to,
		Type: "main",
	})
	s.wf.Connections[from] = group
}

// convertModule translates one module into a node and records its report
// entry.
func (s *scenarioWalk) convertModule(ctx context.Context, mod *schema.Module, upstreamID int) schema.GraphNode {
	name := s.names[mod.ID]
	nr := schema.NodeReport{
		Node:       name,
		SourceType: mod.Module,
		Status:     schema.NodeStatusFull,
	}

	mapping, known, err := s.conv.catalog.ResolveModuleType(mod.Module, mod.Mapper, nil)
	if err != nil {
		s.report.Warnings = append(s.report.Warnings,
			fmt.Sprintf("mapping resolution failed for module %d: %s", mod.ID, err.Error()))
		known = false
	}

	params := mod.Mapper
	nodeType := mod.Module
	if known {
		nodeType = mapping.GraphType
		nr.Status = mapping.Status
		params = mapping.ScenarioParams(mod.Mapper)
	} else {
		nr.Status = schema.NodeStatusUnsupported
		nr.Notes = append(nr.Notes, fmt.Sprintf("no mapping for module type %q; type carried over verbatim", mod.Module))
	}
	// Restore metadata from a previous graph-to-scenario run wins over the
	// catalog: it names the exact original type.
	if restored, ok := mod.Metadata.Restore["type"].(string); ok && restored != "" {
		nodeType = restored
		nr.Notes = append(nr.Notes, "node type restored from conversion metadata")
	}
	nr.TargetType = nodeType

	var translated map[string]any
	if params != nil {
		res := s.conv.proc.ProcessTree(ctx, params,
			schema.ScenarioToGraph, expressions.ModeTranslate,
			expressions.RefContext{UpstreamID: upstreamID, ModuleNames: s.names}, nil)
		translated = asParamTree(res.Tree)
		nr.Flags = append(nr.Flags, res.Flags...)
	}

	node := schema.GraphNode{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       nodeType,
		Parameters: translated,
	}
	if v, ok := mod.Metadata.Restore["typeVersion"].(float64); ok {
		node.TypeVersion = v
	}
	if d := mod.Metadata.Designer; d != nil {
		node.Position = []float64{d.X, d.Y}
	} else {
		node.Position = []float64{float64(s.column) * 220, 0}
	}
	s.column++

	s.report.Nodes = append(s.report.Nodes, nr)
	return node
}
