package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/convert"
	"github.com/flowmorph/flowmorph/internal/logging"
	"github.com/flowmorph/flowmorph/internal/store"
	"github.com/flowmorph/flowmorph/internal/validation"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

var (
	flagDirection   string
	flagOutput      string
	flagNoSave      bool
	flagConcurrency int
)

var convertCmd = &cobra.Command{
	Use:   "convert <workflow.json> [more.json ...]",
	Short: "Convert workflow files between the two formats",
	Long: `Reads a workflow file, converts it to the other format and writes the result
as JSON. The conversion report (per-node status, review flags, warnings) is
printed to stderr.

The direction is inferred from the document shape (a "nodes" array means
graph, a "flow" array means scenario) unless --direction is given.

With several files the conversions run concurrently and each result is
written next to its input as <name>.converted.json.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&flagDirection, "direction", "d", "", "conversion direction: graph-to-scenario or scenario-to-graph")
	convertCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the converted workflow to this file instead of stdout (single file only)")
	convertCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "do not record the run in the history database")
	convertCmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "parallel conversions in batch mode")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return runConvertBatch(cmd, args)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	dir, err := resolveDirection(raw, flagDirection)
	if err != nil {
		return err
	}

	conv, err := newConverter()
	if err != nil {
		return err
	}
	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	ctx := logging.WithConversionID(cmd.Context(), runID)
	start := time.Now()

	var result any
	var report *schema.ConversionReport
	var name string
	var nodeCount int

	switch dir {
	case schema.GraphToScenario:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal(raw, &wf); err != nil {
			return fmt.Errorf("parse graph workflow: %w", err)
		}
		if err := validator.ValidateGraph(&wf); err != nil {
			return err
		}
		sc, rep, err := conv.GraphToScenario(ctx, &wf)
		if err != nil {
			return err
		}
		result, report, name, nodeCount = sc, rep, wf.Name, len(wf.Nodes)

	case schema.ScenarioToGraph:
		var sc schema.Scenario
		if err := json.Unmarshal(raw, &sc); err != nil {
			return fmt.Errorf("parse scenario: %w", err)
		}
		if err := validator.ValidateScenario(&sc); err != nil {
			return err
		}
		wf, rep, err := conv.ScenarioToGraph(ctx, &sc)
		if err != nil {
			return err
		}
		result, report, name, nodeCount = wf, rep, sc.Name, len(rep.Nodes)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, append(out, '\n'), 0o644); err != nil {
			return err
		}
	} else {
		fmt.Println(string(out))
	}

	printReport(report)

	if !flagNoSave {
		saveRun(ctx, runID, dir, name, nodeCount, report, time.Since(start))
	}
	return nil
}

// runConvertBatch converts several files through the bounded conversion pool.
// Per-file failures are reported and do not abort the rest.
func runConvertBatch(cmd *cobra.Command, paths []string) error {
	if flagOutput != "" {
		return fmt.Errorf("--output only applies to a single file")
	}

	conv, err := newConverter()
	if err != nil {
		return err
	}
	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return err
	}

	var jobs []convert.BatchJob
	failed := 0
	for _, path := range paths {
		job, err := prepareBatchJob(validator, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		jobs = append(jobs, job)
	}

	ctx := cmd.Context()
	start := time.Now()
	for _, outcome := range conv.ConvertBatch(ctx, jobs, flagConcurrency) {
		if outcome.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", outcome.Name, outcome.Err)
			failed++
			continue
		}
		outPath := strings.TrimSuffix(outcome.Name, ".json") + ".converted.json"
		if err := os.WriteFile(outPath, append(outcome.Output, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", outcome.Name, err)
			failed++
			continue
		}
		review := ""
		if outcome.Report.NeedsReview() {
			review = fmt.Sprintf("  (%d flags, review)", outcome.Report.FlagCount())
		}
		fmt.Fprintf(os.Stderr, "%s -> %s%s\n", outcome.Name, outPath, review)

		if !flagNoSave {
			runID := uuid.New().String()
			saveRun(logging.WithConversionID(ctx, runID), runID,
				outcome.Report.Direction, outcome.Name, len(outcome.Report.Nodes), outcome.Report, time.Since(start))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func prepareBatchJob(validator validation.Validator, path string) (convert.BatchJob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return convert.BatchJob{}, err
	}
	dir, err := resolveDirection(raw, flagDirection)
	if err != nil {
		return convert.BatchJob{}, err
	}

	switch dir {
	case schema.GraphToScenario:
		var wf schema.GraphWorkflow
		if err := json.Unmarshal(raw, &wf); err != nil {
			return convert.BatchJob{}, fmt.Errorf("parse graph workflow: %w", err)
		}
		if err := validator.ValidateGraph(&wf); err != nil {
			return convert.BatchJob{}, err
		}
	case schema.ScenarioToGraph:
		var sc schema.Scenario
		if err := json.Unmarshal(raw, &sc); err != nil {
			return convert.BatchJob{}, fmt.Errorf("parse scenario: %w", err)
		}
		if err := validator.ValidateScenario(&sc); err != nil {
			return convert.BatchJob{}, err
		}
	}

	return convert.BatchJob{Name: path, Direction: dir, Raw: raw}, nil
}

// resolveDirection picks the conversion direction from the flag, falling back
// to the document shape.
func resolveDirection(raw []byte, flag string) (schema.Direction, error) {
	if flag != "" {
		dir := schema.Direction(flag)
		if !dir.Valid() {
			return "", fmt.Errorf("unknown direction %q", flag)
		}
		return dir, nil
	}

	var probe struct {
		Nodes json.RawMessage `json:"nodes"`
		Flow  json.RawMessage `json:"flow"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("parse workflow: %w", err)
	}
	switch {
	case probe.Nodes != nil && probe.Flow == nil:
		return schema.GraphToScenario, nil
	case probe.Flow != nil && probe.Nodes == nil:
		return schema.ScenarioToGraph, nil
	default:
		return "", fmt.Errorf("cannot infer direction: document has neither a nodes nor a flow array (use --direction)")
	}
}

func printReport(report *schema.ConversionReport) {
	flagged := 0
	for _, n := range report.Nodes {
		if len(n.Flags) > 0 || n.Status != schema.NodeStatusFull {
			flagged++
		}
	}
	fmt.Fprintf(os.Stderr, "converted %d nodes (%d need review)\n", len(report.Nodes), flagged)

	for _, n := range report.Nodes {
		if len(n.Flags) == 0 && n.Status == schema.NodeStatusFull && len(n.Notes) == 0 {
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s (%s -> %s) %s\n", n.Node, n.SourceType, n.TargetType, n.Status)
		for _, f := range n.Flags {
			fmt.Fprintf(os.Stderr, "    flag %s: %s\n", f.Path, f.Reason)
		}
		for _, note := range n.Notes {
			fmt.Fprintf(os.Stderr, "    note: %s\n", note)
		}
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", w)
	}
}

// saveRun records the run in the history database. Failures are logged and
// swallowed so a broken database never fails a conversion.
func saveRun(ctx context.Context, id string, dir schema.Direction, name string, nodes int, report *schema.ConversionReport, elapsed time.Duration) {
	st, err := openStore(ctx)
	if err != nil {
		logger.WarnContext(ctx, "run history unavailable", "error", err)
		return
	}
	defer st.Close()

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
	if err := st.SaveRun(ctx, run); err != nil {
		logger.WarnContext(ctx, "failed to record run", "run_id", id, "error", err)
	}
}

// openStore opens the history database and applies pending migrations.
func openStore(ctx context.Context) (store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, err
	}
	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
