package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/store"
	"github.com/flowmorph/flowmorph/pkg/schema"
)

var (
	flagHistDirection   string
	flagHistNeedsReview bool
	flagHistLimit       int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversion runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistDirection, "direction", "", "only show runs in this direction")
	historyCmd.Flags().BoolVar(&flagHistNeedsReview, "needs-review", false, "only show runs that were flagged for review")
	historyCmd.Flags().IntVar(&flagHistLimit, "limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	filter := store.RunFilter{Limit: flagHistLimit}
	if flagHistDirection != "" {
		dir := schema.Direction(flagHistDirection)
		if !dir.Valid() {
			return fmt.Errorf("unknown direction %q", flagHistDirection)
		}
		filter.Direction = dir
	}
	if flagHistNeedsReview {
		yes := true
		filter.NeedsReview = &yes
	}

	runs, err := st.ListRuns(ctx, filter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, run := range runs {
		name := run.WorkflowName
		if name == "" {
			name = "(unnamed)"
		}
		review := ""
		if run.NeedsReview {
			review = fmt.Sprintf("  review (%d flags)", run.FlagCount)
		}
		fmt.Printf("%s  %-20s  %-18s  %d nodes%s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.Direction, name, run.NodeCount, review)
	}
	return nil
}
