package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowmorph/flowmorph/internal/expressions"
	"github.com/flowmorph/flowmorph/internal/logging"
	"github.com/flowmorph/flowmorph/internal/store"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

// handleConvert converts a whole workflow document between the two formats.
func (s *FlowmorphServer) handleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError("workflow is required"), nil
	}
	dirStr, err := req.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError("direction is required"), nil
	}
	dir := schema.Direction(dirStr)
	if !dir.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown direction %q", dirStr)), nil
	}

	runID := uuid.New().String()
	ctx = logging.WithConversionID(ctx, runID)
	start := time.Now()

	var result any
	var report *schema.ConversionReport
	var name string
	var nodeCount int

	switch dir {
	case schema.GraphToScenario:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal([]byte(raw), &wf); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow is not valid graph JSON: %v", err)), nil
		}
		if err := s.validator.ValidateGraph(&wf); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow failed validation: %v", err)), nil
		}
		sc, rep, convErr := s.converter.GraphToScenario(ctx, &wf)
		if convErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("conversion failed: %v", convErr)), nil
		}
		result, report, name, nodeCount = sc, rep, wf.Name, len(wf.Nodes)

	case schema.ScenarioToGraph:
		var sc schema.Scenario
		if err := json.Unmarshal([]byte(raw), &sc); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow is not valid scenario JSON: %v", err)), nil
		}
		if err := s.validator.ValidateScenario(&sc); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow failed validation: %v", err)), nil
		}
		wf, rep, convErr := s.converter.ScenarioToGraph(ctx, &sc)
		if convErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("conversion failed: %v", convErr)), nil
		}
		result, report, name, nodeCount = wf, rep, sc.Name, len(rep.Nodes)
	}

	s.recordRun(ctx, runID, dir, name, nodeCount, report, time.Since(start))

	return marshalResult(map[string]any{
		"run_id": runID,
		"result": result,
		"report": report,
	})
}

// handleTranslate rewrites one expression between the dialects.
func (s *FlowmorphServer) handleTranslate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}
	dirStr, err := req.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError("direction is required"), nil
	}
	dir := schema.Direction(dirStr)
	if !dir.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown direction %q", dirStr)), nil
	}

	ref := expressions.RefContext{
		UpstreamID: req.GetInt("upstream_id", 0),
	}
	if names := mcp.ParseStringMap(req, "module_names", nil); len(names) > 0 {
		ref.ModuleNames = make(map[int]string, len(names))
		for k, v := range names {
			id, convErr := strconv.Atoi(k)
			name, isStr := v.(string)
			if convErr != nil || !isStr {
				return mcp.NewToolResultError("module_names must map numeric ids to node names"), nil
			}
			ref.ModuleNames[id] = name
		}
	}

	translated := expressions.Translate(expr, dir, ref)
	flagged, reasons := expressions.NeedsReview(expr)

	return marshalResult(map[string]any{
		"translated":   translated,
		"changed":      translated != expr,
		"needs_review": flagged,
		"reasons":      reasons,
	})
}

// handleReview classifies one expression.
func (s *FlowmorphServer) handleReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}

	flagged, reasons := expressions.NeedsReview(expr)
	return marshalResult(map[string]any{
		"needs_review": flagged,
		"reasons":      reasons,
	})
}

// recordRun persists a conversion run when a store is configured. Persistence
// failures are logged, never surfaced to the tool caller.
func (s *FlowmorphServer) recordRun(ctx context.Context, id string, dir schema.Direction, name string, nodes int, report *schema.ConversionReport, elapsed time.Duration) {
	if s.store == nil || report == nil {
		return
	}
	run := &store.ConversionRun{
		ID:           id,
		Direction:    dir,
		WorkflowName: name,
		NodeCount:    nodes,
		FlagCount:    report.FlagCount(),
		NeedsReview:  report.NeedsReview(),
		Report:       report,
		Duration:     elapsed,
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "failed to record conversion run",
			"run_id", id, "error", err)
	}
}

// --- Tool definitions ---

func convertTool() mcp.Tool {
	return mcp.NewTool("flowmorph.convert",
		mcp.WithDescription("Convert a workflow definition between the node-graph and module-route formats. Returns the converted document plus a per-node report with review flags"),
		mcp.WithString("workflow", mcp.Required(),
			mcp.Description("The workflow document as a JSON string")),
		mcp.WithString("direction", mcp.Required(),
			mcp.Enum("graph-to-scenario", "scenario-to-graph"),
			mcp.Description("Conversion direction")),
	)
}

func translateTool() mcp.Tool {
	return mcp.NewTool("flowmorph.translate_expression",
		mcp.WithDescription("Rewrite a single embedded expression between the two dialect syntaxes without evaluating it"),
		mcp.WithString("expression", mcp.Required(),
			mcp.Description("The expression, including its wrapper (={{ ... }} or {{...}})")),
		mcp.WithString("direction", mcp.Required(),
			mcp.Enum("graph-to-scenario", "scenario-to-graph"),
			mcp.Description("Translation direction")),
		mcp.WithNumber("upstream_id",
			mcp.Description("Module id of the direct upstream, for incoming-data roots")),
		mcp.WithObject("module_names",
			mcp.Description("Map of module id to original node name, for named references")),
	)
}

func reviewTool() mcp.Tool {
	return mcp.NewTool("flowmorph.review",
		mcp.WithDescription("Check whether an expression's automatic conversion should be reviewed by a human, with the reasons"),
		mcp.WithString("expression", mcp.Required(),
			mcp.Description("The expression, including its wrapper")),
	)
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
