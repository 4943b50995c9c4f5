package expressions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// Heuristics that mark an expression as too complex for automatic
// translation to be trusted. Purely syntactic: the classifier never evaluates
// the expression and never reads the evaluation context.

// higherOrderFuncs are array functions whose callback arguments have no
// faithful equivalent across dialects.
var higherOrderFuncs = map[string]bool{
	"map": true, "filter": true, "reduce": true, "forEach": true,
	"sort": true, "flatMap": true, "find": true, "some": true, "every": true,
	"each": true,
}

// regexLiteralPattern spots /pattern/flags literals: a slash in a position
// where a value is expected, closed by another slash.
var regexLiteralPattern = regexp.MustCompile(`(^|[=(,&|!?:+\s])/[^/*\s][^/]*/[a-z]*`)

// dateFormatPattern finds quoted date-format strings with two or more format
// tokens (e.g. "YYYY-MM-DD").
var dateFormatPattern = regexp.MustCompile(`['"][^'"]*(?:YYYY|YY|MMMM|MMM|MM|DD|HH|mm|ss)[^'"]*(?:YYYY|YY|MMMM|MMM|MM|DD|HH|mm|ss)[^'"]*['"]`)

// callPattern matches a function invocation: an identifier directly followed
// by an opening parenthesis.
var callPattern = regexp.MustCompile(`[$A-Za-z_][$A-Za-z0-9_]*\s*\(`)

// NeedsReview reports whether an expression's source text should be flagged
// for human review, with one reason per matched heuristic.
func NeedsReview(expr string) (bool, []string) {
	dialect, ok := isAnyExpression(expr)
	if !ok {
		return false, nil
	}
	src := body(expr, dialect)

	var reasons []string

	if names := callNames(src); len(names) > 1 {
		reasons = append(reasons, "multiple function calls: "+strings.Join(names, ", "))
	}

	for _, name := range callNames(src) {
		if higherOrderFuncs[strings.TrimPrefix(name, "$")] {
			reasons = append(reasons, "array higher-order function: "+name)
			break
		}
	}

	// "??" and "?." are not conditionals; only ternary "?" counts. Repeated
	// if() calls are the function-style spelling of the same nesting.
	stripped := stripStrings(src)
	ternaries := strings.NewReplacer("??", "", "?.", "").Replace(stripped)
	ifCalls := strings.Count(stripped, "if(") + strings.Count(stripped, "if (")
	if strings.Count(ternaries, "?")+ifCalls > 1 {
		reasons = append(reasons, "nested conditional logic")
	}

	if regexLiteralPattern.MatchString(stripStrings(src)) {
		reasons = append(reasons, "regular expression literal")
	}

	if containsLiteralConstruction(src) {
		reasons = append(reasons, "inline object/array construction")
	}

	if dateFormatPattern.MatchString(src) {
		reasons = append(reasons, "multi-token date format pattern")
	}

	return len(reasons) > 0, reasons
}

// ScanForReview walks a parameter tree and returns a flag for every embedded
// expression of the given dialect that NeedsReview would mark, one flag per
// reason. Non-string leaves and expressions of other dialects are skipped.
func ScanForReview(d schema.Dialect, tree any) []schema.ReviewFlag {
	var flags []schema.ReviewFlag
	scanTree(tree, "", d, &flags)
	return flags
}

func scanTree(v any, path string, d schema.Dialect, flags *[]schema.ReviewFlag) {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			scanTree(item, childPath(path, k), d, flags)
		}
	case []any:
		for i, item := range t {
			scanTree(item, path+"["+strconv.Itoa(i)+"]", d, flags)
		}
	case string:
		if !IsExpression(t, d) {
			return
		}
		if flagged, reasons := NeedsReview(t); flagged {
			for _, reason := range reasons {
				*flags = append(*flags, schema.ReviewFlag{Path: path, Reason: reason})
			}
		}
	}
}

// callNames returns the distinct function names invoked in the source text,
// in order of first appearance.
func callNames(src string) []string {
	matches := callPattern.FindAllString(stripStrings(src), -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		name := strings.TrimSpace(strings.TrimSuffix(m, "("))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// containsLiteralConstruction detects object or array literals outside
// strings. Brackets directly after a value are indexing, not construction.
func containsLiteralConstruction(src string) bool {
	s := stripStrings(src)
	if strings.Contains(s, "{") {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		// Walk back to the previous non-space character.
		j := i - 1
		for j >= 0 && (s[j] == ' ' || s[j] == '\t') {
			j--
		}
		if j < 0 {
			return true
		}
		c := s[j]
		if !(isIdentPart(c) || c == ')' || c == ']') {
			return true
		}
	}
	return false
}

// stripStrings blanks out quoted string contents so punctuation inside
// literals doesn't trigger the heuristics.
func stripStrings(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i++
				b.WriteString("__")
				continue
			}
			if c == quote {
				quote = 0
				b.WriteByte(c)
				continue
			}
			b.WriteByte('_')
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
		}
		b.WriteByte(c)
	}
	return b.String()
}
