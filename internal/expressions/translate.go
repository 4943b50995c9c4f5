package expressions

import (
	"strconv"
	"strings"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// RefContext carries the caller-resolved references the translator needs.
// The translator never inspects the workflow graph itself: the numeric id of
// the upstream module and the id-to-name table both come from the outer
// converter.
type RefContext struct {
	// UpstreamID is the module id the incoming-data root ($json) maps to.
	// Zero means "unknown"; the root is then passed through unchanged.
	UpstreamID int

	// ModuleNames maps module ids to the original node names. Scenario ->
	// graph uses it to turn numeric roots back into named-node references;
	// graph -> scenario uses the inverse lookup to turn named-node
	// references into numeric roots.
	ModuleNames map[int]string
}

// idForName is the reverse ModuleNames lookup. Duplicate names resolve to the
// smallest id so the result does not depend on map iteration order.
func (ref RefContext) idForName(name string) (int, bool) {
	best := 0
	for id, n := range ref.ModuleNames {
		if n == name && id > 0 && (best == 0 || id < best) {
			best = id
		}
	}
	return best, best > 0
}

// Variable-root table for graph -> scenario. $json and $node are handled
// structurally in the rewrite loop; everything here is a plain rename.
var graphRoots = map[string]string{
	"$binary":    "binary",
	"$env":       "env",
	"$parameter": "parameters",
	"$workflow":  "scenario",
	"$now":       "now",
	"$today":     "today",
}

// scenarioRoots is the inverse of graphRoots.
var scenarioRoots = func() map[string]string {
	m := make(map[string]string, len(graphRoots))
	for k, v := range graphRoots {
		m[v] = k
	}
	return m
}()

// Function-name table for graph -> scenario. Argument order and count pass
// through untouched; only the name changes.
var graphFuncs = map[string]string{
	"$if":         "if",
	"$min":        "min",
	"$max":        "max",
	"toUpperCase": "upper",
	"toLowerCase": "lower",
	"trim":        "trim",
	"replace":     "replace",
	"split":       "split",
	"includes":    "contains",
	"join":        "join",
	"toNumber":    "parseNumber",
	"toString":    "toString",
	"toFormat":    "formatDate",
	"fromFormat":  "parseDate",
}

var scenarioFuncs = func() map[string]string {
	m := make(map[string]string, len(graphFuncs))
	for k, v := range graphFuncs {
		m[v] = k
	}
	return m
}()

// reserved identifiers that are never treated as module-name roots when
// translating scenario -> graph.
var scenarioKeywords = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true,
	"binary": true, "env": true, "parameters": true, "scenario": true,
	"now": true, "today": true,
}

// Translate rewrites an expression string from the direction's source dialect
// into its target dialect without evaluating it. Unknown roots and function
// names pass through unchanged; if the body cannot be lexed, or a named-node
// reference has no resolvable scenario form, the original string is returned
// untouched so the caller's review classifier can flag it.
// Deterministic: same input, direction and refs always yield the same output.
func Translate(expr string, dir schema.Direction, ref RefContext) string {
	if !IsExpression(expr, dir.Source()) {
		return expr
	}

	src := body(expr, dir.Source())
	toks, err := lex(src)
	if err != nil {
		return expr
	}

	if dir == schema.GraphToScenario {
		out, ok := rewriteGraphBody(toks, ref)
		if !ok {
			return expr
		}
		return wrap(out, dir.Target())
	}
	return wrap(rewriteScenarioBody(toks, ref), dir.Target())
}

// rewriteGraphBody rewrites a graph-dialect token stream into scenario syntax.
// Returns ok=false when a named-node reference has no resolvable scenario
// form, so the caller can keep the original expression intact.
func rewriteGraphBody(toks []token, ref RefContext) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.kind != tokenIdent {
			b.WriteString(tok.text)
			continue
		}

		// Function names win over root names: "$if(" is a call, not a root.
		if name, ok := graphFuncs[tok.text]; ok && nextIsCall(toks, i) {
			b.WriteString(name)
			continue
		}

		switch tok.text {
		case "$json":
			if ref.UpstreamID > 0 {
				b.WriteString(strconv.Itoa(ref.UpstreamID))
			} else {
				b.WriteString(tok.text)
			}

		case "$node":
			// $node["Name"].json.rest -> <id>.rest when the id is known,
			// Name.rest when the name is a single bare identifier. Names
			// with spaces and no known id have no resolvable form.
			name, skip, ok := matchNodeRef(toks, i)
			if !ok {
				b.WriteString(tok.text)
				continue
			}
			if id, found := ref.idForName(name); found {
				b.WriteString(strconv.Itoa(id))
			} else if isBareModuleName(name) {
				b.WriteString(name)
			} else {
				return "", false
			}
			i += skip

		default:
			if mapped, ok := graphRoots[tok.text]; ok {
				b.WriteString(mapped)
			} else {
				b.WriteString(tok.text)
			}
		}
	}
	return strings.TrimSpace(b.String()), true
}

// rewriteScenarioBody rewrites a scenario-dialect token stream into graph
// syntax.
func rewriteScenarioBody(toks []token, ref RefContext) string {
	var b strings.Builder
	for i := 0; i < len(toks); i++ {
		tok := toks[i]

		switch tok.kind {
		case tokenNumber:
			// A root-position integer followed by ".field" is an upstream
			// module reference.
			if isRootPosition(toks, i) && nextIsMember(toks, i) && !strings.Contains(tok.text, ".") {
				id, err := strconv.Atoi(tok.text)
				if err == nil {
					b.WriteString(upstreamToGraph(id, ref))
					continue
				}
			}
			b.WriteString(tok.text)

		case tokenIdent:
			if name, ok := scenarioFuncs[tok.text]; ok && nextIsCall(toks, i) {
				b.WriteString(name)
				continue
			}
			if mapped, ok := scenarioRoots[tok.text]; ok && isRootPosition(toks, i) {
				b.WriteString(mapped)
				continue
			}
			// A bare non-keyword identifier in root position followed by a
			// member access is a module-name root.
			if isRootPosition(toks, i) && nextIsMember(toks, i) &&
				!scenarioKeywords[tok.text] && !nextIsCall(toks, i) {
				b.WriteString(`$node["` + tok.text + `"].json`)
				continue
			}
			b.WriteString(tok.text)

		default:
			b.WriteString(tok.text)
		}
	}
	return strings.TrimSpace(b.String())
}

// upstreamToGraph maps a numeric module reference to its graph-dialect root.
// The immediate upstream module becomes $json; other known modules become
// named-node references; unknown ids pass through unchanged.
func upstreamToGraph(id int, ref RefContext) string {
	if ref.UpstreamID > 0 && id == ref.UpstreamID {
		return "$json"
	}
	if name, ok := ref.ModuleNames[id]; ok {
		return `$node["` + name + `"].json`
	}
	return strconv.Itoa(id)
}

// isBareModuleName reports whether name can stand alone as a scenario
// module-name root: a single plain identifier that is not a keyword. The
// scenario dialect has no quoting for roots, so anything else (spaces,
// punctuation, a leading digit or "$") would lex as multiple tokens.
func isBareModuleName(name string) bool {
	if name == "" || scenarioKeywords[name] || isDigit(name[0]) {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '$' || !isIdentPart(c) {
			return false
		}
	}
	return true
}

// hasUnresolvableNodeRef reports whether a graph-dialect expression contains
// a $node reference that rewriteGraphBody cannot turn into a resolvable
// scenario root.
func hasUnresolvableNodeRef(expr string, ref RefContext) bool {
	toks, err := lex(body(expr, schema.DialectGraph))
	if err != nil {
		return false
	}
	for i := 0; i < len(toks); i++ {
		if toks[i].kind != tokenIdent || toks[i].text != "$node" {
			continue
		}
		name, skip, ok := matchNodeRef(toks, i)
		if !ok {
			continue
		}
		if _, found := ref.idForName(name); !found && !isBareModuleName(name) {
			return true
		}
		i += skip
	}
	return false
}

// matchNodeRef matches $node["Name"] at toks[i], optionally followed by
// ".json", and returns the referenced name plus the number of extra tokens
// consumed.
func matchNodeRef(toks []token, i int) (name string, skip int, ok bool) {
	j := i + 1
	j = skipSpace(toks, j)
	if j >= len(toks) || toks[j].text != "[" {
		return "", 0, false
	}
	j = skipSpace(toks, j+1)
	if j >= len(toks) || toks[j].kind != tokenString {
		return "", 0, false
	}
	name = unquote(toks[j].text)
	j = skipSpace(toks, j+1)
	if j >= len(toks) || toks[j].text != "]" {
		return "", 0, false
	}

	// Optional ".json" segment: the scenario module root already points at
	// the module's output data.
	k := skipSpace(toks, j+1)
	if k+1 < len(toks) && toks[k].text == "." && toks[k+1].kind == tokenIdent && toks[k+1].text == "json" {
		return name, k + 1 - i, true
	}
	return name, j - i, true
}

// nextIsCall reports whether the next significant token after i is "(".
func nextIsCall(toks []token, i int) bool {
	j := skipSpace(toks, i+1)
	return j < len(toks) && toks[j].kind == tokenPunct && toks[j].text == "("
}

// nextIsMember reports whether the next significant token after i is ".".
func nextIsMember(toks []token, i int) bool {
	j := skipSpace(toks, i+1)
	return j < len(toks) && toks[j].kind == tokenPunct && toks[j].text == "."
}

// isRootPosition reports whether toks[i] starts a variable reference: the
// previous significant token must not be a member dot or a value.
func isRootPosition(toks []token, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch toks[j].kind {
		case tokenSpace:
			continue
		case tokenPunct:
			return toks[j].text != "." && toks[j].text != ")" && toks[j].text != "]"
		case tokenOp:
			return toks[j].text != "?."
		case tokenIdent, tokenNumber, tokenString:
			return false
		}
	}
	return true
}

func skipSpace(toks []token, i int) int {
	for i < len(toks) && toks[i].kind == tokenSpace {
		i++
	}
	return i
}
