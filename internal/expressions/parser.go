package expressions

import (
	"strconv"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// maxParseDepth bounds parser recursion so pathological nesting fails cleanly
// instead of overflowing the stack.
const maxParseDepth = 64

// AST node types. The grammar is expression-only: no loops, no assignment,
// no statements, which structurally prevents unbounded evaluation.
type (
	litNode struct {
		val any
	}
	varNode struct {
		name string
	}
	memberNode struct {
		obj      node
		name     string
		optional bool
	}
	indexNode struct {
		obj node
		key node
	}
	callNode struct {
		callee node // varNode or memberNode
		args   []node
	}
	unaryNode struct {
		op string
		x  node
	}
	binaryNode struct {
		op   string
		l, r node
	}
	ternaryNode struct {
		cond, then, els node
	}
	arrayNode struct {
		items []node
	}
	objectNode struct {
		keys []string
		vals []node
	}
)

type node interface{}

// parser is a recursive-descent parser over the token stream produced by lex.
// It skips whitespace tokens; the translator is the only consumer that cares
// about spacing.
type parser struct {
	toks  []token
	pos   int
	depth int
}

// parseBody parses an expression body into an AST.
func parseBody(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, schema.NewErrorf(schema.ErrCodeParse,
			"unexpected token %q at position %d", tok.text, tok.pos)
	}
	return n, nil
}

func (p *parser) peek() token {
	for p.pos < len(p.toks) && p.toks[p.pos].kind == tokenSpace {
		p.pos++
	}
	if p.pos >= len(p.toks) {
		return token{kind: tokenEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.peek()
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, text string) (token, error) {
	tok := p.next()
	if tok.kind != kind || (text != "" && tok.text != text) {
		return tok, schema.NewErrorf(schema.ErrCodeParse,
			"expected %q, got %q at position %d", text, tok.text, tok.pos)
	}
	return tok, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxParseDepth {
		return schema.NewError(schema.ErrCodeParse, "expression nesting too deep")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// parseExpr parses a full expression: ternary is the lowest precedence level.
func (p *parser) parseExpr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	cond, err := p.parseNullish()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind == tokenOp && tok.text == "?" {
		p.next()
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenOp, ":"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ternaryNode{cond: cond, then: then, els: els}, nil
	}
	return cond, nil
}

func (p *parser) parseNullish() (node, error) {
	return p.parseBinaryLevel(0)
}

// binary operator precedence, lowest first.
var binaryLevels = [][]string{
	{"??"},
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinaryLevel(level int) (node, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinaryLevel(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOp || !contains(binaryLevels[level], tok.text) {
			return left, nil
		}
		p.next()
		right, err := p.parseBinaryLevel(level + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text, l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	if tok.kind == tokenOp && (tok.text == "!" || tok.text == "-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tok.text, x: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by any chain of member access,
// indexing, and calls.
func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		switch {
		case tok.kind == tokenPunct && tok.text == ".":
			p.next()
			name, err := p.expect(tokenIdent, "")
			if err != nil {
				return nil, err
			}
			n = memberNode{obj: n, name: name.text}

		case tok.kind == tokenOp && tok.text == "?.":
			p.next()
			name, err := p.expect(tokenIdent, "")
			if err != nil {
				return nil, err
			}
			n = memberNode{obj: n, name: name.text, optional: true}

		case tok.kind == tokenPunct && tok.text == "[":
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokenPunct, "]"); err != nil {
				return nil, err
			}
			n = indexNode{obj: n, key: key}

		case tok.kind == tokenPunct && tok.text == "(":
			switch n.(type) {
			case varNode, memberNode:
			default:
				return nil, schema.NewErrorf(schema.ErrCodeParse,
					"call target is not a function at position %d", tok.pos)
			}
			p.next()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			n = callNode{callee: n, args: args}

		default:
			return n, nil
		}
	}
}

func (p *parser) parseArgs() ([]node, error) {
	var args []node
	if tok := p.peek(); tok.kind == tokenPunct && tok.text == ")" {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok := p.next()
		if tok.kind == tokenPunct && tok.text == ")" {
			return args, nil
		}
		if tok.kind != tokenPunct || tok.text != "," {
			return nil, schema.NewErrorf(schema.ErrCodeParse,
				"expected ',' or ')' in argument list, got %q at position %d", tok.text, tok.pos)
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.peek()
	switch {
	case tok.kind == tokenNumber:
		p.next()
		// An integer followed by ".ident" is an upstream-module reference root
		// ({{1.name}}), not a float.
		if dot := p.peek(); dot.kind == tokenPunct && dot.text == "." {
			if p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokenIdent {
				return varNode{name: tok.text}, nil
			}
		}
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeParse, "bad number %q", tok.text).WithCause(err)
		}
		return litNode{val: f}, nil

	case tok.kind == tokenString:
		p.next()
		return litNode{val: unquote(tok.text)}, nil

	case tok.kind == tokenIdent:
		p.next()
		switch tok.text {
		case "true":
			return litNode{val: true}, nil
		case "false":
			return litNode{val: false}, nil
		case "null", "undefined":
			return litNode{val: nil}, nil
		}
		// Arrow functions are outside the sandbox grammar; fail so the caller
		// can fall back and the classifier can flag the expression.
		if nxt := p.peek(); nxt.kind == tokenOp && nxt.text == "=>" {
			return nil, schema.NewErrorf(schema.ErrCodeParse,
				"arrow functions are not supported at position %d", nxt.pos)
		}
		return varNode{name: tok.text}, nil

	case tok.kind == tokenPunct && tok.text == "(":
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenPunct, ")"); err != nil {
			return nil, err
		}
		return inner, nil

	case tok.kind == tokenPunct && tok.text == "[":
		p.next()
		return p.parseArrayLit()

	case tok.kind == tokenPunct && tok.text == "{":
		p.next()
		return p.parseObjectLit()

	default:
		return nil, schema.NewErrorf(schema.ErrCodeParse,
			"unexpected token %q at position %d", tok.text, tok.pos)
	}
}

func (p *parser) parseArrayLit() (node, error) {
	var items []node
	if tok := p.peek(); tok.kind == tokenPunct && tok.text == "]" {
		p.next()
		return arrayNode{}, nil
	}
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		tok := p.next()
		if tok.kind == tokenPunct && tok.text == "]" {
			return arrayNode{items: items}, nil
		}
		if tok.kind != tokenPunct || tok.text != "," {
			return nil, schema.NewErrorf(schema.ErrCodeParse,
				"expected ',' or ']' in array literal, got %q at position %d", tok.text, tok.pos)
		}
	}
}

func (p *parser) parseObjectLit() (node, error) {
	var keys []string
	var vals []node
	if tok := p.peek(); tok.kind == tokenPunct && tok.text == "}" {
		p.next()
		return objectNode{}, nil
	}
	for {
		keyTok := p.next()
		var key string
		switch keyTok.kind {
		case tokenIdent:
			key = keyTok.text
		case tokenString:
			key = unquote(keyTok.text)
		default:
			return nil, schema.NewErrorf(schema.ErrCodeParse,
				"expected object key, got %q at position %d", keyTok.text, keyTok.pos)
		}
		if _, err := p.expect(tokenOp, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		vals = append(vals, val)

		tok := p.next()
		if tok.kind == tokenPunct && tok.text == "}" {
			return objectNode{keys: keys, vals: vals}, nil
		}
		if tok.kind != tokenPunct || tok.text != "," {
			return nil, schema.NewErrorf(schema.ErrCodeParse,
				"expected ',' or '}' in object literal, got %q at position %d", tok.text, tok.pos)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
