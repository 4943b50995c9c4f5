package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/expressions"
	"github.com/flowmorph/flowmorph/internal/validation"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

var (
	flagCheckReview bool
	flagCheckFormat string
)

// flagCheckFormatDirection maps the --format flag to a direction whose source
// dialect is the named format. Empty means infer from the document shape.
func flagCheckFormatDirection() string {
	switch flagCheckFormat {
	case "graph":
		return string(schema.GraphToScenario)
	case "scenario":
		return string(schema.ScenarioToGraph)
	default:
		return ""
	}
}

var checkCmd = &cobra.Command{
	Use:   "check <workflow.json>",
	Short: "Validate a workflow file without converting it",
	Long: `Validates a workflow file against its format's schema and structural rules
(unique names, resolvable connections, no cycles). With --review, also scans
every embedded expression and lists the ones whose conversion would be
flagged for human review.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagCheckReview, "review", false, "also report expressions that would need review")
	checkCmd.Flags().StringVar(&flagCheckFormat, "format", "", "workflow format: graph or scenario (default inferred)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	switch flagCheckFormat {
	case "", "graph", "scenario":
	default:
		return fmt.Errorf("unknown format %q", flagCheckFormat)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	dir, err := resolveDirection(raw, flagCheckFormatDirection())
	if err != nil {
		return err
	}
	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return err
	}

	var trees []paramTree
	switch dir.Source() {
	case schema.DialectGraph:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal(raw, &wf); err != nil {
			return fmt.Errorf("parse graph workflow: %w", err)
		}
		if err := validator.ValidateGraph(&wf); err != nil {
			return err
		}
		for _, n := range wf.Nodes {
			trees = append(trees, paramTree{name: n.Name, params: n.Parameters})
		}
	case schema.DialectScenario:
		var sc schema.Scenario
		if err := json.Unmarshal(raw, &sc); err != nil {
			return fmt.Errorf("parse scenario: %w", err)
		}
		if err := validator.ValidateScenario(&sc); err != nil {
			return err
		}
		collectMapperTrees(sc.Flow, &trees)
	}

	fmt.Printf("%s: valid %s workflow\n", args[0], dir.Source())

	if flagCheckReview {
		reportReviewFlags(dir.Source(), trees)
	}
	return nil
}

type paramTree struct {
	name   string
	params map[string]any
}

func collectMapperTrees(flow []schema.Module, trees *[]paramTree) {
	for _, m := range flow {
		*trees = append(*trees, paramTree{name: fmt.Sprintf("module %d (%s)", m.ID, m.Module), params: m.Mapper})
		for _, r := range m.Routes {
			collectMapperTrees(r.Flow, trees)
		}
	}
}

func reportReviewFlags(dialect schema.Dialect, trees []paramTree) {
	total := 0
	for _, tree := range trees {
		flags := expressions.ScanForReview(dialect, tree.params)
		for _, f := range flags {
			fmt.Printf("  %s at %s: %s\n", tree.name, f.Path, f.Reason)
		}
		total += len(flags)
	}
	if total == 0 {
		fmt.Println("  no expressions need review")
	}
}
