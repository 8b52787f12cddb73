package expr

import (
	"fmt"
	"runtime"
	"sort"
)

// ParseError describes malformed expression text.
type ParseError struct {
	Text string
	// Pos is the byte offset of the offending token.
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: %s at char %d in %q", e.Msg, e.Pos+1, e.Text)
}

// MaxDepth bounds both the nesting of parentheses, signs and function
// calls and the height of the parsed tree.
const MaxDepth = 1000

// parser turns a token stream into a Node tree.
type parser struct {
	// the text being parsed
	text string
	// declared variable names
	vars map[string]bool
	// referenced variable names
	refs map[string]bool

	lex *lexer
	// two-token lookahead for parser
	token     [2]token
	peekCount int

	// current nesting depth
	depth int
	// heights of the composite nodes built so far
	heights map[Node]int
}

// Parse compiles text into an Expression over the declared variables.
// Identifiers other than the variables and the builtin function names are
// rejected. Text is parsed as is; see Preprocess for the historical
// rewrites applied to function text before parsing.
func Parse(text string, vars ...string) (*Expression, error) {
	root, refs, err := parseTree(text, vars)
	if err != nil {
		return nil, err
	}
	ev, err := createNodeEvaluator(root)
	if err != nil {
		return nil, &ParseError{Text: text, Pos: root.Position(), Msg: err.Error()}
	}
	return &Expression{
		text:      text,
		root:      root,
		evaluator: ev,
		variables: refs,
	}, nil
}

// ParseTree parses text and returns the root of the tree without compiling it.
func ParseTree(text string, vars ...string) (Node, error) {
	root, _, err := parseTree(text, vars)
	return root, err
}

func parseTree(text string, vars []string) (Node, []string, error) {
	p := &parser{
		vars: make(map[string]bool, len(vars)),
		refs: make(map[string]bool, len(vars)),
	}
	for _, v := range vars {
		p.vars[v] = true
	}
	n, err := p.parse(text)
	if err != nil {
		return nil, nil, err
	}
	refs := make([]string, 0, len(p.refs))
	for r := range p.refs {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return n, refs, nil
}

// --------------------
// Parsing methods
//

// next returns the next token.
func (p *parser) next() token {
	if p.peekCount > 0 {
		p.peekCount--
	} else {
		p.token[0], _ = p.lex.nextToken()
	}
	return p.token[p.peekCount]
}

// backup backs the input stream up one token.
func (p *parser) backup() {
	p.peekCount++
}

// peek returns but does not consume the next token.
func (p *parser) peek() token {
	if p.peekCount > 0 {
		return p.token[p.peekCount-1]
	}
	p.peekCount = 1
	p.token[1] = p.token[0]
	p.token[0], _ = p.lex.nextToken()
	return p.token[0]
}

// errorf formats the error and terminates processing.
func (p *parser) errorf(pos int, format string, args ...interface{}) {
	panic(&ParseError{
		Text: p.text,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// expect consumes the next token and guarantees it has the required type.
func (p *parser) expect(expected TokenType) token {
	token := p.next()
	if token.typ != expected {
		p.unexpected(token, expected)
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (p *parser) unexpected(tok token, expected ...TokenType) {
	if tok.typ == TokenError {
		p.errorf(tok.pos, "%s", tok.val)
	}
	found := fmt.Sprintf("%q", tok.val)
	if tok.typ == TokenEOF {
		found = "end of expression"
	}
	if len(expected) == 0 {
		p.errorf(tok.pos, "unexpected %s", found)
	}
	p.errorf(tok.pos, "unexpected %s, expected %s", found, describe(expected))
}

func describe(types []TokenType) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += " or "
		}
		s += t.String()
	}
	return s
}

// enter descends one nesting level.
func (p *parser) enter(pos int) {
	p.depth++
	if p.depth > MaxDepth {
		p.errorf(pos, "expression nested too deeply")
	}
}

func (p *parser) leave() {
	p.depth--
}

// grow records the height of n built over children.
func (p *parser) grow(n Node, children ...Node) Node {
	h := 1
	for _, c := range children {
		if ch := p.heights[c]; ch > h {
			h = ch
		}
	}
	h++
	if h > MaxDepth {
		p.errorf(n.Position(), "expression nested too deeply")
	}
	if p.heights == nil {
		p.heights = make(map[Node]int)
	}
	p.heights[n] = h
	return n
}

// recover is the handler that turns panics into returns from the top level of Parse.
func (p *parser) recover(errp *error) {
	e := recover()
	if e != nil {
		if _, ok := e.(runtime.Error); ok {
			panic(e)
		}
		if p != nil {
			p.stopParse()
		}
		*errp = e.(error)
	}
}

// stopParse terminates parsing.
func (p *parser) stopParse() {
	p.lex = nil
}

func (p *parser) parse(text string) (n Node, err error) {
	defer p.recover(&err)
	p.lex = lex(text)
	p.text = text

	n = p.expression()
	if tok := p.next(); tok.typ != TokenEOF {
		if tok.typ == TokenRParen {
			p.errorf(tok.pos, "unbalanced parentheses")
		}
		p.unexpected(tok, TokenEOF)
	}

	p.stopParse()
	return
}

// parse a complete expression
func (p *parser) expression() Node {
	return p.precedence(p.unary(), 0)
}

func isBinaryOperator(typ TokenType) bool {
	return IsOperator(typ)
}

// parse the expression considering operator precedence.
// https://en.wikipedia.org/wiki/Operator-precedence_parser#Pseudo-code
func (p *parser) precedence(lhs Node, minP int) Node {
	look := p.peek()
	for isBinaryOperator(look.typ) && precedence[look.typ] >= minP {
		op := p.next()
		rhs := p.unary()
		look = p.peek()
		// ^ is right-associative, everything else left-associative
		for isBinaryOperator(look.typ) &&
			(precedence[look.typ] > precedence[op.typ] ||
				(look.typ == TokenPow && op.typ == TokenPow)) {
			p.enter(look.pos)
			rhs = p.precedence(rhs, precedence[look.typ])
			p.leave()
			look = p.peek()
		}
		lhs = p.grow(&BinaryNode{
			position: position(op.pos),
			Operator: op.typ,
			Left:     lhs,
			Right:    rhs,
		}, lhs, rhs)
	}
	return lhs
}

// parse a signed operand; the sign covers a following ^ chain
// so that -x^2 is -(x^2).
func (p *parser) unary() Node {
	tok := p.peek()
	if tok.typ != TokenMinus && tok.typ != TokenPlus {
		return p.primary()
	}
	p.next()
	p.enter(tok.pos)
	operand := p.precedence(p.unary(), precedence[TokenPow])
	p.leave()
	return p.grow(&UnaryNode{
		position: position(tok.pos),
		Operator: tok.typ,
		Node:     operand,
	}, operand)
}

func (p *parser) primary() Node {
	switch tok := p.peek(); tok.typ {
	case TokenLParen:
		p.next()
		p.enter(tok.pos)
		n := p.expression()
		p.leave()
		if closing := p.next(); closing.typ != TokenRParen {
			if closing.typ == TokenEOF {
				p.errorf(tok.pos, "unbalanced parentheses")
			}
			p.unexpected(closing, TokenRParen)
		}
		return n
	case TokenNumber:
		return p.number()
	case TokenIdent:
		p.next()
		if p.peek().typ == TokenLParen {
			p.backup()
			return p.function()
		}
		p.backup()
		return p.variable()
	case TokenEOF:
		p.errorf(tok.pos, "missing operand")
	default:
		p.unexpected(tok, TokenNumber, TokenIdent, TokenLParen, TokenMinus)
	}
	return nil
}

//parse a number literal
func (p *parser) number() Node {
	token := p.expect(TokenNumber)
	num, err := newNumber(token.pos, token.val)
	if err != nil {
		p.errorf(token.pos, "invalid number %q", token.val)
	}
	return num
}

//parse a variable reference
func (p *parser) variable() Node {
	ident := p.expect(TokenIdent)
	if !p.vars[ident.val] {
		if _, ok := builtins[ident.val]; ok {
			p.errorf(ident.pos, "function %q requires an argument", ident.val)
		}
		p.errorf(ident.pos, "unknown identifier %q", ident.val)
	}
	p.refs[ident.val] = true
	return &VariableNode{
		position: position(ident.pos),
		Name:     ident.val,
	}
}

//parse a function call
func (p *parser) function() Node {
	ident := p.expect(TokenIdent)
	if _, ok := builtins[ident.val]; !ok {
		p.errorf(ident.pos, "unknown function %q", ident.val)
	}
	open := p.expect(TokenLParen)
	if p.peek().typ == TokenRParen {
		p.errorf(open.pos, "function %q expects 1 argument, got 0", ident.val)
	}
	p.enter(ident.pos)
	arg := p.expression()
	argc := 1
	for p.peek().typ == TokenComma {
		p.next()
		p.expression()
		argc++
	}
	p.leave()
	if argc != 1 {
		p.errorf(ident.pos, "function %q expects 1 argument, got %d", ident.val, argc)
	}
	if closing := p.next(); closing.typ != TokenRParen {
		if closing.typ == TokenEOF {
			p.errorf(open.pos, "unbalanced parentheses")
		}
		p.unexpected(closing, TokenRParen)
	}
	return p.grow(&FunctionNode{
		position: position(ident.pos),
		Func:     ident.val,
		Arg:      arg,
	}, arg)
}
