package expressions

import (
	"strings"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// IsExpression reports whether value is a dynamic expression in the given
// dialect. Graph expressions start with "={{" and end with "}}"; scenario
// expressions start with "{{" (no leading "=") and end with "}}".
// Non-string values are never expressions. Plain strings are never mutated
// by any flowmorph component.
func IsExpression(value any, d schema.Dialect) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	switch d {
	case schema.DialectGraph:
		return strings.HasPrefix(s, "={{") && strings.HasSuffix(s, "}}") && len(s) >= 5
	case schema.DialectScenario:
		return strings.HasPrefix(s, "{{") && !strings.HasPrefix(s, "={{") &&
			strings.HasSuffix(s, "}}") && len(s) >= 4
	default:
		return false
	}
}

// isAnyExpression reports whether value matches either dialect's wrapper.
func isAnyExpression(value any) (schema.Dialect, bool) {
	if IsExpression(value, schema.DialectGraph) {
		return schema.DialectGraph, true
	}
	if IsExpression(value, schema.DialectScenario) {
		return schema.DialectScenario, true
	}
	return "", false
}

// body strips the dialect wrapper from an expression string and trims the
// surrounding whitespace inside the braces. The caller must have checked
// IsExpression first.
func body(expr string, d schema.Dialect) string {
	s := expr
	if d == schema.DialectGraph {
		s = strings.TrimPrefix(s, "=")
	}
	s = strings.TrimPrefix(s, "{{")
	s = strings.TrimSuffix(s, "}}")
	return strings.TrimSpace(s)
}

// wrap re-wraps an expression body in the target dialect's delimiters.
// Graph output keeps the conventional inner padding; scenario output does not.
func wrap(bodyText string, d schema.Dialect) string {
	if d == schema.DialectGraph {
		return "={{ " + bodyText + " }}"
	}
	return "{{" + bodyText + "}}"
}
