// Package convert walks whole workflows and rewires them between the graph
// and scenario formats. The expression work is delegated to
// internal/expressions; type translation to internal/mappings. This layer
// owns what neither of those may own: graph traversal and the resolution of
// numeric upstream references.
package convert

import (
	"log/slog"

	"github.com/flowmorph/flowmorph/internal/expressions"
	"github.com/flowmorph/flowmorph/internal/mappings"
)

// Converter converts workflows between the two formats. Safe for concurrent
// use; each conversion carries its own traversal state.
type Converter struct {
	logger  *slog.Logger
	catalog *mappings.Catalog
	proc    *expressions.Processor
}

// New creates a Converter using the given mapping catalog.
func New(logger *slog.Logger, catalog *mappings.Catalog) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		logger:  logger,
		catalog: catalog,
		proc:    expressions.NewProcessor(logger),
	}
}

// asParamTree narrows a processed tree back to a parameter map. The processor
// preserves container types, so anything else means the input was not a map.
func asParamTree(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
