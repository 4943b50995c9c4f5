package expressions

import (
	"context"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// maxEvalSteps caps the number of AST nodes visited per evaluation. The
// grammar has no loops, so this only guards against degenerate inputs such as
// machine-generated expressions with enormous bodies.
const maxEvalSteps = 100_000

// SandboxEngine implements Engine with a purpose-built expression interpreter.
// It has no ambient scope: the only reachable state is the data map passed to
// Evaluate, which makes it safe for expressions from untrusted workflow files.
// Missing variable references resolve to nil rather than failing.
type SandboxEngine struct{}

// NewSandboxEngine creates a new sandboxed expression engine.
func NewSandboxEngine() *SandboxEngine {
	return &SandboxEngine{}
}

// Name returns the engine identifier.
func (e *SandboxEngine) Name() string {
	return "sandbox"
}

// Evaluate parses and interprets an expression body against the data map.
// Variable roots are looked up directly in data ("$json", "env", "1", ...);
// anything absent resolves to nil. Any parse or runtime problem is returned
// as a structured error; the engine never panics.
func (e *SandboxEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expression")
	}

	root, err := parseBody(expression)
	if err != nil {
		return nil, err
	}

	ev := &evaluator{ctx: ctx, data: data, budget: maxEvalSteps}
	out, err := ev.eval(root)
	if err != nil {
		if cerr, ok := err.(*schema.ConvertError); ok {
			return nil, cerr.WithDetails(map[string]any{"expression": expression})
		}
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation,
			"evaluation failed for %q: %s", expression, err.Error()).WithCause(err)
	}
	return out, nil
}

var _ Engine = (*SandboxEngine)(nil)

type evaluator struct {
	ctx    context.Context
	data   map[string]any
	budget int
}

func (ev *evaluator) step() error {
	ev.budget--
	if ev.budget <= 0 {
		return schema.NewError(schema.ErrCodeTimeout, "evaluation budget exhausted")
	}
	if ev.budget%1024 == 0 {
		if err := ev.ctx.Err(); err != nil {
			return schema.NewError(schema.ErrCodeTimeout, "evaluation cancelled").WithCause(err)
		}
	}
	return nil
}

func (ev *evaluator) eval(n node) (any, error) {
	if err := ev.step(); err != nil {
		return nil, err
	}

	switch t := n.(type) {
	case litNode:
		return t.val, nil

	case varNode:
		if ev.data == nil {
			return nil, nil
		}
		return ev.data[t.name], nil

	case memberNode:
		obj, err := ev.eval(t.obj)
		if err != nil {
			return nil, err
		}
		return member(obj, t.name), nil

	case indexNode:
		obj, err := ev.eval(t.obj)
		if err != nil {
			return nil, err
		}
		key, err := ev.eval(t.key)
		if err != nil {
			return nil, err
		}
		return indexValue(obj, key), nil

	case callNode:
		return ev.evalCall(t)

	case unaryNode:
		x, err := ev.eval(t.x)
		if err != nil {
			return nil, err
		}
		switch t.op {
		case "!":
			return !truthy(x), nil
		case "-":
			f, ok := toNumber(x)
			if !ok {
				return nil, schema.NewErrorf(schema.ErrCodeEvaluation,
					"cannot negate %T", x)
			}
			return -f, nil
		}
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "unknown unary operator %q", t.op)

	case binaryNode:
		return ev.evalBinary(t)

	case ternaryNode:
		cond, err := ev.eval(t.cond)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return ev.eval(t.then)
		}
		return ev.eval(t.els)

	case arrayNode:
		out := make([]any, 0, len(t.items))
		for _, item := range t.items {
			v, err := ev.eval(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case objectNode:
		out := make(map[string]any, len(t.keys))
		for i, key := range t.keys {
			v, err := ev.eval(t.vals[i])
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	}

	return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "unknown node type %T", n)
}

func (ev *evaluator) evalBinary(t binaryNode) (any, error) {
	// Short-circuit operators evaluate the right side lazily.
	switch t.op {
	case "&&":
		l, err := ev.eval(t.l)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return l, nil
		}
		return ev.eval(t.r)
	case "||":
		l, err := ev.eval(t.l)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return l, nil
		}
		return ev.eval(t.r)
	case "??":
		l, err := ev.eval(t.l)
		if err != nil {
			return nil, err
		}
		if l != nil {
			return l, nil
		}
		return ev.eval(t.r)
	}

	l, err := ev.eval(t.l)
	if err != nil {
		return nil, err
	}
	r, err := ev.eval(t.r)
	if err != nil {
		return nil, err
	}

	switch t.op {
	case "+":
		return addValues(l, r)
	case "-", "*", "/", "%":
		lf, lok := toNumber(l)
		rf, rok := toNumber(r)
		if !lok || !rok {
			return nil, schema.NewErrorf(schema.ErrCodeEvaluation,
				"operator %q requires numbers, got %T and %T", t.op, l, r)
		}
		switch t.op {
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, schema.NewError(schema.ErrCodeEvaluation, "division by zero")
			}
			return lf / rf, nil
		case "%":
			if rf == 0 {
				return nil, schema.NewError(schema.ErrCodeEvaluation, "modulo by zero")
			}
			return math.Mod(lf, rf), nil
		}
	case "==", "===":
		return equal(l, r), nil
	case "!=", "!==":
		return !equal(l, r), nil
	case "<", "<=", ">", ">=":
		return compare(t.op, l, r)
	}

	return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "unknown operator %q", t.op)
}

func (ev *evaluator) evalCall(t callNode) (any, error) {
	var name string
	var recv any
	var hasRecv bool

	switch callee := t.callee.(type) {
	case varNode:
		name = callee.name
	case memberNode:
		obj, err := ev.eval(callee.obj)
		if err != nil {
			return nil, err
		}
		name = callee.name
		recv = obj
		hasRecv = true
	default:
		return nil, schema.NewError(schema.ErrCodeEvaluation, "call target is not a function")
	}

	args := make([]any, 0, len(t.args)+1)
	if hasRecv {
		args = append(args, recv)
	}
	for _, a := range t.args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	fn, ok := builtins[normalizeFuncName(name)]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "unknown function %q", name)
	}
	return fn(args)
}

// --- value helpers ---

// member resolves property access. Missing keys and access through nil
// resolve to nil; they never fail the evaluation.
func member(obj any, name string) any {
	switch v := obj.(type) {
	case map[string]any:
		return v[name]
	case []any:
		if name == "length" {
			return float64(len(v))
		}
	case string:
		if name == "length" {
			return float64(len(v))
		}
	}
	return nil
}

func indexValue(obj, key any) any {
	switch v := obj.(type) {
	case map[string]any:
		if s, ok := key.(string); ok {
			return v[s]
		}
	case []any:
		if f, ok := toNumber(key); ok {
			i := int(f)
			if i >= 0 && i < len(v) {
				return v[i]
			}
		}
	}
	return nil
}

// addValues implements "+". A sequence containing at least one string always
// concatenates as strings; whitespace in the literal segments is preserved
// exactly. Purely numeric operands add numerically.
func addValues(l, r any) (any, error) {
	_, lstr := l.(string)
	_, rstr := r.(string)
	if lstr || rstr {
		return stringify(l) + stringify(r), nil
	}

	lf, lok := toNumber(l)
	rf, rok := toNumber(r)
	if lok && rok {
		return lf + rf, nil
	}

	// Mixed non-numeric operands (nil, bool, maps): fall back to string
	// concatenation rather than producing a numeric artifact.
	return stringify(l) + stringify(r), nil
}

// stringify renders a value the way it would appear inside a concatenated
// string. nil renders empty so missing references don't inject placeholders.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return formatJSONish(v)
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func equal(l, r any) bool {
	if lf, ok := toNumber(l); ok {
		if rf, ok := toNumber(r); ok {
			return lf == rf
		}
	}
	return reflect.DeepEqual(l, r)
}

func compare(op string, l, r any) (any, error) {
	if lf, lok := toNumber(l); lok {
		if rf, rok := toNumber(r); rok {
			return compareOrd(op, cmpFloat(lf, rf)), nil
		}
	}
	if ls, lok := l.(string); lok {
		if rs, rok := r.(string); rok {
			return compareOrd(op, strings.Compare(ls, rs)), nil
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeEvaluation,
		"cannot compare %T and %T", l, r)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrd(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

// --- builtins ---

type builtinFunc func(args []any) (any, error)

// builtins is the full set of callable functions in the sandbox. Method-style
// calls (x.trim()) pass the receiver as the first argument, so the same table
// serves both dialects' calling conventions.
var builtins = map[string]builtinFunc{
	"if":          builtinIf,
	"upper":       func(a []any) (any, error) { return strings.ToUpper(argString(a, 0)), nil },
	"lower":       func(a []any) (any, error) { return strings.ToLower(argString(a, 0)), nil },
	"trim":        func(a []any) (any, error) { return strings.TrimSpace(argString(a, 0)), nil },
	"replace":     builtinReplace,
	"split":       builtinSplit,
	"join":        builtinJoin,
	"contains":    builtinContains,
	"length":      builtinLength,
	"min":         builtinMin,
	"max":         builtinMax,
	"round":       func(a []any) (any, error) { return math.Round(argNumber(a, 0)), nil },
	"floor":       func(a []any) (any, error) { return math.Floor(argNumber(a, 0)), nil },
	"ceil":        func(a []any) (any, error) { return math.Ceil(argNumber(a, 0)), nil },
	"parsenumber": builtinParseNumber,
	"tostring":    func(a []any) (any, error) { return stringify(argAny(a, 0)), nil },
	"now":         func(a []any) (any, error) { return time.Now().UTC().Format(time.RFC3339), nil },
	"formatdate":  builtinFormatDate,
}

// normalizeFuncName folds both dialects' spellings onto builtin keys:
// "$if" and "if" are the same function, "toUpperCase" and "upper" too.
func normalizeFuncName(name string) string {
	name = strings.TrimPrefix(name, "$")
	if mapped, ok := methodAliases[name]; ok {
		return mapped
	}
	return strings.ToLower(name)
}

var methodAliases = map[string]string{
	"toUpperCase": "upper",
	"toLowerCase": "lower",
	"includes":    "contains",
	"toNumber":    "parsenumber",
	"toString":    "tostring",
	"toFormat":    "formatdate",
}

func builtinIf(args []any) (any, error) {
	if len(args) < 2 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "if() requires at least 2 arguments")
	}
	if truthy(args[0]) {
		return args[1], nil
	}
	if len(args) > 2 {
		return args[2], nil
	}
	return nil, nil
}

func builtinReplace(args []any) (any, error) {
	if len(args) < 3 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "replace() requires 3 arguments")
	}
	return strings.ReplaceAll(argString(args, 0), argString(args, 1), argString(args, 2)), nil
}

func builtinSplit(args []any) (any, error) {
	if len(args) < 2 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "split() requires 2 arguments")
	}
	parts := strings.Split(argString(args, 0), argString(args, 1))
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func builtinJoin(args []any) (any, error) {
	if len(args) < 2 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "join() requires 2 arguments")
	}
	list, ok := args[0].([]any)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "join() requires a list, got %T", args[0])
	}
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = stringify(v)
	}
	return strings.Join(parts, argString(args, 1)), nil
}

func builtinContains(args []any) (any, error) {
	if len(args) < 2 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "contains() requires 2 arguments")
	}
	switch v := args[0].(type) {
	case string:
		return strings.Contains(v, argString(args, 1)), nil
	case []any:
		for _, item := range v {
			if equal(item, args[1]) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func builtinLength(args []any) (any, error) {
	switch v := argAny(args, 0).(type) {
	case string:
		return float64(len(v)), nil
	case []any:
		return float64(len(v)), nil
	case map[string]any:
		return float64(len(v)), nil
	}
	return float64(0), nil
}

func builtinMin(args []any) (any, error) { return builtinExtremum(args, true) }
func builtinMax(args []any) (any, error) { return builtinExtremum(args, false) }

func builtinExtremum(args []any, min bool) (any, error) {
	if len(args) == 0 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "min()/max() requires arguments")
	}
	best, ok := toNumber(args[0])
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "min()/max() requires numbers, got %T", args[0])
	}
	for _, a := range args[1:] {
		f, ok := toNumber(a)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "min()/max() requires numbers, got %T", a)
		}
		if (min && f < best) || (!min && f > best) {
			best = f
		}
	}
	return best, nil
}

func builtinParseNumber(args []any) (any, error) {
	if f, ok := toNumber(argAny(args, 0)); ok {
		return f, nil
	}
	s := strings.TrimSpace(argString(args, 0))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "cannot parse %q as number", s)
	}
	return f, nil
}

// dateTokens maps the workflow platforms' date-format tokens onto Go layouts.
// Ordered longest-first so "YYYY" wins over "YY".
var dateTokens = [][2]string{
	{"YYYY", "2006"}, {"YY", "06"},
	{"MMMM", "January"}, {"MMM", "Jan"}, {"MM", "01"},
	{"DD", "02"}, {"HH", "15"}, {"mm", "04"}, {"ss", "05"},
}

func builtinFormatDate(args []any) (any, error) {
	if len(args) < 2 {
		return nil, schema.NewError(schema.ErrCodeEvaluation, "formatDate() requires 2 arguments")
	}
	var t time.Time
	switch v := args[0].(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "formatDate(): cannot parse %q", v).WithCause(err)
		}
		t = parsed
	case time.Time:
		t = v
	default:
		return nil, schema.NewErrorf(schema.ErrCodeEvaluation, "formatDate(): unsupported value %T", args[0])
	}

	layout := argString(args, 1)
	for _, tok := range dateTokens {
		layout = strings.ReplaceAll(layout, tok[0], tok[1])
	}
	return t.Format(layout), nil
}

func argAny(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func argString(args []any, i int) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
		return stringify(args[i])
	}
	return ""
}

func argNumber(args []any, i int) float64 {
	if i < len(args) {
		if f, ok := toNumber(args[i]); ok {
			return f
		}
	}
	return 0
}
