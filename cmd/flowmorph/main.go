package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/convert"
	"github.com/flowmorph/flowmorph/internal/logging"
	"github.com/flowmorph/flowmorph/internal/mappings"
)

var (
	// Global flags
	flagDBPath   string
	flagMappings string
	flagLogLevel string

	cfg    Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flowmorph",
	Short: "Convert workflow definitions between the node-graph and module-route formats",
	Long: `flowmorph converts workflow automation definitions between two formats:

  graph     node-graph workflows: a node list plus a connection map, with
            expressions wrapped in ={{ }} and $-prefixed roots ($json, $node)
  scenario  module/route workflows: a linear flow with router branching, with
            expressions wrapped in {{ }} and numeric upstream references

Every conversion produces a per-node report listing review flags: expressions
or parameters whose automatic translation should be checked by a human.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = loadConfig()
		if flagDBPath != "" {
			cfg.DBPath = flagDBPath
		}
		if flagMappings != "" {
			cfg.MappingsPath = flagMappings
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		logger = buildLogger(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the run history database (default ~/.flowmorph/flowmorph.db)")
	rootCmd.PersistentFlags().StringVar(&flagMappings, "mappings", "", "path to a YAML file with node-type mapping overrides")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}

// newConverter builds the converter with the builtin catalog plus any
// configured mapping overrides.
func newConverter() (*convert.Converter, error) {
	catalog, err := mappings.NewCatalog()
	if err != nil {
		return nil, err
	}
	if cfg.MappingsPath != "" {
		n, err := catalog.LoadOverrides(cfg.MappingsPath)
		if err != nil {
			return nil, fmt.Errorf("load mapping overrides: %w", err)
		}
		logger.Debug("loaded mapping overrides", "path", cfg.MappingsPath, "count", n)
	}
	return convert.New(logger, catalog), nil
}
