package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

type stateFn func(*lexer) stateFn

const eof = -1

const (
	TokenError TokenType = iota
	TokenEOF
	TokenIdent
	TokenNumber
	TokenLParen
	TokenRParen
	TokenComma

	// begin operator tokens
	begin_tok_operator

	TokenPlus
	TokenMinus
	TokenMult
	TokenDiv
	TokenMod
	TokenPow

	//end operator tokens
	end_tok_operator
)

var operatorStr = [...]string{
	TokenPlus:  "+",
	TokenMinus: "-",
	TokenMult:  "*",
	TokenDiv:   "/",
	TokenMod:   "%",
	TokenPow:   "^",
}

var strToOperator map[string]TokenType

func init() {
	strToOperator = make(map[string]TokenType, len(operatorStr))
	for t, s := range operatorStr {
		if s != "" {
			strToOperator[s] = TokenType(t)
		}
	}
}

//String representation of an TokenType
func (t TokenType) String() string {
	switch {
	case t == TokenError:
		return "ERR"
	case t == TokenEOF:
		return "EOF"
	case t == TokenIdent:
		return "identifier"
	case t == TokenNumber:
		return "number"
	case t == TokenLParen:
		return "("
	case t == TokenRParen:
		return ")"
	case t == TokenComma:
		return ","
	case IsOperator(t):
		return operatorStr[t]
	}
	return fmt.Sprintf("%d", t)
}

// True if token type is a binary or unary arithmetic operator.
func IsOperator(typ TokenType) bool {
	return typ > begin_tok_operator && typ < end_tok_operator
}

// token represents a token or text string returned from the scanner.
type token struct {
	typ TokenType
	pos int
	val string
}

func (t token) String() string {
	return fmt.Sprintf("{%v pos: %d val: %s}", t.typ, t.pos, t.val)
}

// lexer holds the state of the scanner.
// Tokens are collected into a slice instead of a channel so an aborted
// parse never strands a scanning goroutine.
type lexer struct {
	input  string  // the string being scanned.
	start  int     // start position of this token.
	pos    int     // current position in the input.
	width  int     // width of last rune read from input.
	tokens []token // scanned tokens.
	cursor int     // index of the next token handed to the parser.
}

func lex(input string) *lexer {
	l := &lexer{
		input: input,
	}
	l.run()
	return l
}

// Lex scans the whole input and returns the token values in order.
// Scanning stops at the first error, which is returned together with the
// tokens read so far.
func Lex(input string) ([]string, error) {
	l := lex(input)
	vals := make([]string, 0, len(l.tokens))
	for _, t := range l.tokens {
		switch t.typ {
		case TokenError:
			return vals, &ParseError{Text: input, Pos: t.pos, Msg: t.val}
		case TokenEOF:
			return vals, nil
		}
		vals = append(vals, t.val)
	}
	return vals, nil
}

// run lexes the input by executing state functions until
// the state is nil.
func (l *lexer) run() {
	for state := lexToken; state != nil; {
		state = state(l)
	}
}

// emit passes an token back to the client.
func (l *lexer) emit(t TokenType) {
	l.tokens = append(l.tokens, token{t, l.start, l.current()})
	l.start = l.pos
}

// nextToken returns the next token from the input.
// The second value is false when there are no more tokens.
func (l *lexer) nextToken() (token, bool) {
	if l.cursor >= len(l.tokens) {
		return token{typ: TokenEOF, pos: len(l.input)}, false
	}
	t := l.tokens[l.cursor]
	l.cursor++
	return t, true
}

// next returns the next rune in the input.
func (l *lexer) next() (r rune) {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, l.width =
		utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return
}

// errorf records an error token and terminates the scan by passing
// back a nil pointer that will be the next state.
func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.tokens = append(l.tokens, token{TokenError, l.start, fmt.Sprintf(format, args...)})
	return nil
}

//Backup the lexer to the previous rune
func (l *lexer) backup() {
	l.pos -= l.width
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// current returns the text of the pending token.
func (l *lexer) current() string {
	return l.input[l.start:l.pos]
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

func lexToken(l *lexer) stateFn {
	for {
		switch r := l.next(); {
		case isOperatorChar(r):
			l.backup()
			return lexOperator
		case unicode.IsDigit(r), r == '.':
			l.backup()
			return lexNumber
		case unicode.IsLetter(r), r == '_':
			return lexIdent
		case isSpace(r):
			l.ignore()
		case r == '(':
			l.emit(TokenLParen)
			return lexToken
		case r == ')':
			l.emit(TokenRParen)
			return lexToken
		case r == ',':
			l.emit(TokenComma)
			return lexToken
		case r == eof:
			l.emit(TokenEOF)
			return nil
		default:
			return l.errorf("unexpected character %q", r)
		}
	}
}

const operatorChars = "+-*/%^"

func isOperatorChar(r rune) bool {
	return strings.IndexRune(operatorChars, r) != -1
}

func lexOperator(l *lexer) stateFn {
	r := l.next()
	if r == '*' && l.peek() == '*' {
		// Preprocess rewrites ** before parsing; seeing it here means
		// the caller skipped that step.
		l.next()
		return l.errorf("unexpected operator %q, use %q", "**", "^")
	}
	op, ok := strToOperator[l.current()]
	if !ok {
		return l.errorf("unknown operator %q", l.current())
	}
	l.emit(op)
	return lexToken
}

func lexIdent(l *lexer) stateFn {
	for {
		switch r := l.next(); {
		case isValidIdent(r):
			//absorb
		default:
			l.backup()
			l.emit(TokenIdent)
			return lexToken
		}
	}
}

// isValidIdent reports whether r is either a letter or a digit
func isValidIdent(r rune) bool {
	return unicode.IsDigit(r) || unicode.IsLetter(r) || r == '_'
}

// isSpace reports whether r is a space character.
func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

func lexNumber(l *lexer) stateFn {
	foundDecimal := false
	foundDigit := false
	for {
		switch r := l.next(); {
		case r == '.':
			if foundDecimal {
				return l.errorf("multiple decimals in number")
			}
			foundDecimal = true
		case unicode.IsDigit(r):
			foundDigit = true
		case (r == 'e' || r == 'E') && foundDigit && isExponentStart(l):
			return lexExponent
		default:
			l.backup()
			if !foundDigit {
				return l.errorf("invalid number %q", l.current())
			}
			l.emit(TokenNumber)
			return lexToken
		}
	}
}

// isExponentStart reports whether the input after an 'e' continues as an
// exponent, i.e. an optional sign followed by a digit.
func isExponentStart(l *lexer) bool {
	rest := l.input[l.pos:]
	if strings.HasPrefix(rest, "+") || strings.HasPrefix(rest, "-") {
		rest = rest[1:]
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsDigit(r)
}

func lexExponent(l *lexer) stateFn {
	if r := l.peek(); r == '+' || r == '-' {
		l.next()
	}
	for unicode.IsDigit(l.peek()) {
		l.next()
	}
	l.emit(TokenNumber)
	return lexToken
}
