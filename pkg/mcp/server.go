package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/flowmorph/flowmorph/internal/convert"
	"github.com/flowmorph/flowmorph/internal/store"
	"github.com/flowmorph/flowmorph/internal/validation"
)

// ServerDeps holds the dependencies for creating a FlowmorphServer. Store is
// optional; without it conversions are simply not recorded.
type ServerDeps struct {
	Converter *convert.Converter
	Validator validation.Validator
	Store     store.Store
	Logger    *slog.Logger
}

// FlowmorphServer wraps an MCP server with workflow conversion tool handlers.
type FlowmorphServer struct {
	converter *convert.Converter
	validator validation.Validator
	store     store.Store
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewFlowmorphServer creates a new FlowmorphServer with all 3 tools registered.
func NewFlowmorphServer(deps ServerDeps) *FlowmorphServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &FlowmorphServer{
		converter: deps.Converter,
		validator: deps.Validator,
		store:     deps.Store,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowmorph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Flowmorph converts workflow definitions between the node-graph and module-route formats. Use flowmorph.convert to convert a whole workflow, flowmorph.translate_expression to rewrite a single embedded expression, and flowmorph.review to check whether an expression needs human review."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowmorphServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowmorphServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *FlowmorphServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: convertTool(), Handler: s.handleConvert},
		{Tool: translateTool(), Handler: s.handleTranslate},
		{Tool: reviewTool(), Handler: s.handleReview},
	}
}
