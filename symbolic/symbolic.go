// Package symbolic rewrites and renders expression text on the expr tree.
//
// It implements the symbolic collaborator of function entities with the
// transformations that need no algebra system: constant folding, the
// neutral element identities, MathML and Go source export.
package symbolic

import (
	"unicode"

	"github.com/datamelt/fengine/expr"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned for transformations that need a full algebra system.
var ErrUnsupported = errors.New("transformation not supported")

// Renderer is the default symbolic collaborator.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// parse parses text declaring every identifier that is not a builtin
// function, so that unsubstituted parameters survive a transformation.
func parse(text string) (expr.Node, error) {
	tokens, err := expr.Lex(text)
	if err != nil {
		return nil, err
	}
	var vars []string
	for _, tok := range tokens {
		r := []rune(tok)[0]
		if (unicode.IsLetter(r) || r == '_') && !expr.IsFunction(tok) {
			vars = append(vars, tok)
		}
	}
	return expr.ParseTree(text, vars...)
}

func rewrite(text string, fn func(expr.Node) expr.Node) (string, error) {
	root, err := parse(text)
	if err != nil {
		return "", err
	}
	return expr.Format(fn(root)), nil
}

// Simplify folds constant sub-expressions and removes neutral elements:
// x+0, x-0, x*1, x/1 and x^1 become x, x*0 becomes 0, x^0 becomes 1 and
// --x becomes x. The x*0 and x^0 rules only apply when x is a variable or
// a number, so log(x)*0 keeps failing where log(x) does.
func (r *Renderer) Simplify(text string) (string, error) {
	return rewrite(text, func(n expr.Node) expr.Node {
		return fold(n, true)
	})
}

// Numeric folds constant sub-expressions.
func (r *Renderer) Numeric(text string) (string, error) {
	return rewrite(text, func(n expr.Node) expr.Node {
		return fold(n, false)
	})
}

// Expand is not supported.
func (r *Renderer) Expand(string) (string, error) {
	return "", errors.Wrap(ErrUnsupported, "expand")
}

// Factorize is not supported.
func (r *Renderer) Factorize(string) (string, error) {
	return "", errors.Wrap(ErrUnsupported, "factorize")
}

// Elementary is not supported.
func (r *Renderer) Elementary(string) (string, error) {
	return "", errors.Wrap(ErrUnsupported, "elementary")
}

// MathML renders text as presentation MathML.
func (r *Renderer) MathML(text string) (string, error) {
	root, err := parse(text)
	if err != nil {
		return "", err
	}
	return mathML(root), nil
}

// Source renders text as a Go expression using the math package.
func (r *Renderer) Source(text string) (string, error) {
	root, err := parse(text)
	if err != nil {
		return "", err
	}
	return goSource(root), nil
}
