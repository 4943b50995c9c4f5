package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/diagram"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

var (
	flagDiagramFormat string
	flagDiagramOut    string
	flagDiagramReview bool
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <workflow.json>",
	Short: "Render a workflow as a diagram",
	Long: `Renders a workflow file as a Mermaid flowchart, an ASCII diagram or a PNG
image. With --review, the workflow is also converted and each node is colored
by its conversion outcome (full, partial, unsupported) with its review flag
count.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagram,
}

func init() {
	diagramCmd.Flags().StringVarP(&flagDiagramFormat, "format", "f", "mermaid", "output format: mermaid, ascii or png")
	diagramCmd.Flags().StringVarP(&flagDiagramOut, "output", "o", "", "write the diagram to this file (required for png)")
	diagramCmd.Flags().BoolVar(&flagDiagramReview, "review", false, "overlay conversion outcomes on the diagram")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	dir, err := resolveDirection(raw, "")
	if err != nil {
		return err
	}

	model, err := buildDiagramModel(cmd, raw, dir)
	if err != nil {
		return err
	}

	switch flagDiagramFormat {
	case "mermaid":
		return writeDiagram([]byte(diagram.RenderMermaid(model)))
	case "ascii":
		return writeDiagram([]byte(diagram.RenderASCII(model)))
	case "png":
		if flagDiagramOut == "" {
			return fmt.Errorf("png output requires --output")
		}
		png, err := diagram.RenderImage(model)
		if err != nil {
			return err
		}
		return os.WriteFile(flagDiagramOut, png, 0o644)
	default:
		return fmt.Errorf("unknown format %q", flagDiagramFormat)
	}
}

func buildDiagramModel(cmd *cobra.Command, raw []byte, dir schema.Direction) (*diagram.Model, error) {
	var report *schema.ConversionReport
	if flagDiagramReview {
		var err error
		if report, err = convertForReport(cmd, raw, dir); err != nil {
			return nil, err
		}
	}

	switch dir.Source() {
	case schema.DialectScenario:
		var sc schema.Scenario
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse scenario: %w", err)
		}
		return diagram.BuildScenario(&sc, report)
	default:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal(raw, &wf); err != nil {
			return nil, fmt.Errorf("parse graph workflow: %w", err)
		}
		return diagram.BuildGraph(&wf, report)
	}
}

// convertForReport runs the conversion just for its report.
func convertForReport(cmd *cobra.Command, raw []byte, dir schema.Direction) (*schema.ConversionReport, error) {
	conv, err := newConverter()
	if err != nil {
		return nil, err
	}

	switch dir {
	case schema.ScenarioToGraph:
		var sc schema.Scenario
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse scenario: %w", err)
		}
		_, report, err := conv.ScenarioToGraph(cmd.Context(), &sc)
		return report, err
	default:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal(raw, &wf); err != nil {
			return nil, fmt.Errorf("parse graph workflow: %w", err)
		}
		_, report, err := conv.GraphToScenario(cmd.Context(), &wf)
		return report, err
	}
}

func writeDiagram(out []byte) error {
	if flagDiagramOut != "" {
		return os.WriteFile(flagDiagramOut, out, 0o644)
	}
	fmt.Print(string(out))
	return nil
}
