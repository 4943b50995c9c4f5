package expressions

import "context"

// Engine evaluates expression bodies against a context map.
// Two implementations: Sandbox (purpose-built grammar, default) and
// Expr (expr-lang fallback for bodies beyond the sandbox grammar).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
