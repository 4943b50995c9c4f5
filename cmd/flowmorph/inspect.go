package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/expressions"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <workflow.json> <jq-query>",
	Short: "Run a jq query against a workflow file",
	Long: `Runs a jq query against a workflow document and prints the result as JSON.
Useful for poking at large workflows before converting them:

  flowmorph inspect workflow.json '.nodes[].type'
  flowmorph inspect scenario.json '[.flow[] | {id, module}]'`,
	Args: cobra.ExactArgs(2),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	result, err := expressions.NewQueryEngine().Run(cmd.Context(), args[1], doc)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
