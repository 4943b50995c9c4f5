package expressions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// maxTreeDepth bounds the processor's recursion. Parameters nested deeper
// than this are passed through untouched as opaque leaves.
const maxTreeDepth = 128

// Mode selects what the processor does with each detected expression.
type Mode string

const (
	// ModeTranslate rewrites expressions into the direction's target dialect.
	ModeTranslate Mode = "translate"
	// ModeEvaluate computes each expression's value against the context.
	ModeEvaluate Mode = "evaluate"
)

// Result is the outcome of one parameter-tree pass.
type Result struct {
	Tree  any
	Flags []schema.ReviewFlag
}

// Processor walks parameter trees and applies the translator or evaluator to
// every expression leaf. It holds no mutable state between calls and is safe
// for concurrent use.
type Processor struct {
	logger   *slog.Logger
	sandbox  *SandboxEngine
	fallback Engine
}

// NewProcessor creates a Processor. The expr-lang engine handles bodies the
// sandbox grammar rejects; pass nil to disable the fallback.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:   logger,
		sandbox:  NewSandboxEngine(),
		fallback: NewExprEngine(),
	}
}

// ProcessTree clones tree, transforming every expression leaf per mode and
// collecting review flags with their dotted/indexed paths. The input tree is
// never mutated; non-expression leaves are returned as-is (deep-copied for
// containers). Key and array order of non-expression content is preserved.
func (p *Processor) ProcessTree(ctx context.Context, tree any, dir schema.Direction, mode Mode, ref RefContext, data map[string]any) Result {
	res := Result{}
	res.Tree = p.walk(ctx, tree, "", 0, &res.Flags, func(expr string, path string) any {
		if mode == ModeEvaluate {
			return p.evaluateLeaf(ctx, expr, dir.Source(), data)
		}
		out := Translate(expr, dir, ref)
		if ref.UpstreamID == 0 && containsIncomingDataRoot(expr, dir.Source()) {
			res.Flags = append(res.Flags, schema.ReviewFlag{
				Path:   path,
				Reason: "no upstream reference available for incoming-data root",
			})
		}
		if dir == schema.GraphToScenario && hasUnresolvableNodeRef(expr, ref) {
			res.Flags = append(res.Flags, schema.ReviewFlag{
				Path:   path,
				Reason: "named-node reference cannot be resolved to a module; expression kept unchanged",
			})
		}
		return out
	}, dir.Source())
	return res
}

// ProcessObjectWithExpressions evaluates every expression leaf (either
// dialect) in tree against the context and returns the transformed clone.
func (p *Processor) ProcessObjectWithExpressions(ctx context.Context, tree any, data map[string]any) Result {
	res := Result{}
	res.Tree = p.walk(ctx, tree, "", 0, &res.Flags, func(expr string, _ string) any {
		d, _ := isAnyExpression(expr)
		return p.evaluateLeaf(ctx, expr, d, data)
	}, "")
	return res
}

// walk recursively clones the tree, invoking transform on expression leaves.
// dialect selects which wrapper counts as an expression; empty means either.
func (p *Processor) walk(ctx context.Context, v any, path string, depth int, flags *[]schema.ReviewFlag, transform func(expr, path string) any, dialect schema.Dialect) any {
	if depth > maxTreeDepth {
		// Excess depth: treat the remainder as an opaque pass-through leaf.
		return deepCopyAny(v, depth)
	}

	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = p.walk(ctx, item, childPath(path, k), depth+1, flags, transform, dialect)
		}
		return out

	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = p.walk(ctx, item, path+"["+strconv.Itoa(i)+"]", depth+1, flags, transform, dialect)
		}
		return out

	case string:
		isExpr := false
		if dialect == "" {
			_, isExpr = isAnyExpression(t)
		} else {
			isExpr = IsExpression(t, dialect)
		}
		if !isExpr {
			return t
		}
		if flagged, reasons := NeedsReview(t); flagged {
			for _, reason := range reasons {
				*flags = append(*flags, schema.ReviewFlag{Path: path, Reason: reason})
			}
		}
		return transform(t, path)

	default:
		// Numbers, bools, nil: scalars pass through.
		return v
	}
}

// evaluateLeaf evaluates a single expression leaf. Failures are logged and
// degrade to the original unevaluated string; they never propagate. The
// expr-lang fallback covers only bodies the sandbox grammar rejects: runtime
// failures on a parseable body keep the sandbox's verdict so the same
// expression never yields two different results.
func (p *Processor) evaluateLeaf(ctx context.Context, expr string, d schema.Dialect, data map[string]any) any {
	if d == "" {
		return expr
	}
	src := body(expr, d)

	out, err := p.sandbox.Evaluate(ctx, src, data)
	if err == nil {
		return out
	}

	var cerr *schema.ConvertError
	if p.fallback != nil && errors.As(err, &cerr) && cerr.Code == schema.ErrCodeParse {
		if out, ferr := p.fallback.Evaluate(ctx, normalizeForExpr(src), normalizeData(data)); ferr == nil {
			return out
		}
	}

	p.logger.WarnContext(ctx, "expression evaluation failed",
		slog.String("expression", expr),
		slog.String("error", err.Error()),
	)
	return expr
}

// containsIncomingDataRoot reports whether the expression references the
// source dialect's incoming-data root.
func containsIncomingDataRoot(expr string, d schema.Dialect) bool {
	if d != schema.DialectGraph {
		return false
	}
	toks, err := lex(body(expr, d))
	if err != nil {
		return false
	}
	for _, tok := range toks {
		if tok.kind == tokenIdent && tok.text == "$json" {
			return true
		}
	}
	return false
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// --- deep copy utilities ---

// maxCopyDepth bounds the copy recursion independently of the walk budget.
// Below it containers are shared with the input rather than cloned.
const maxCopyDepth = 4096

// deepCopyAny recursively deep-copies a value down to maxCopyDepth. Handles
// maps, slices, and primitives (which are inherently immutable).
func deepCopyAny(v any, depth int) any {
	if depth > maxCopyDepth {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(val))
		for k, item := range val {
			cp[k] = deepCopyAny(item, depth+1)
		}
		return cp
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item, depth+1)
		}
		return cp
	case json.RawMessage:
		if val == nil {
			return nil
		}
		cp := make(json.RawMessage, len(val))
		copy(cp, val)
		return cp
	default:
		return v
	}
}

// formatJSONish renders a composite value as compact JSON for string
// concatenation, falling back to fmt for unmarshalable values.
func formatJSONish(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
