package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowmorph/flowmorph/internal/validation"
	flowmcp "github.com/flowmorph/flowmorph/pkg/mcp"
)

var flagServeNoStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion tools over MCP on stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
flowmorph.convert, flowmorph.translate_expression and flowmorph.review tools.
Conversion runs are recorded in the history database unless --no-store is
given or the database cannot be opened.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagServeNoStore, "no-store", false, "do not record conversion runs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conv, err := newConverter()
	if err != nil {
		return err
	}
	validator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return err
	}

	deps := flowmcp.ServerDeps{
		Converter: conv,
		Validator: validator,
		Logger:    logger,
	}
	if !flagServeNoStore {
		st, err := openStore(ctx)
		if err != nil {
			logger.Warn("run history unavailable, serving without it", "error", err)
		} else {
			defer st.Close()
			deps.Store = st
		}
	}

	logger.Info("serving MCP on stdio", "version", version)
	return flowmcp.NewFlowmorphServer(deps).Serve(ctx)
}
