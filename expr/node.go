package expr

import (
	"bytes"
	"strconv"
)

// Node is a parsed element of an expression tree.
type Node interface {
	// Position returns the byte offset of the node in the source text.
	Position() int
	String() string
}

type position int

func (p position) Position() int {
	return int(p)
}

// NumberNode holds a numeric literal.
type NumberNode struct {
	position
	Value float64
	// Text is the literal as written in the source, empty for folded values.
	Text string
}

func newNumber(p int, text string) (*NumberNode, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return &NumberNode{
		position: position(p),
		Value:    f,
		Text:     text,
	}, nil
}

// NewNumber returns a literal node for v.
func NewNumber(v float64) *NumberNode {
	return &NumberNode{Value: v}
}

func (n *NumberNode) String() string {
	if n.Text != "" {
		return n.Text
	}
	return FormatFloat(n.Value)
}

// VariableNode references one of the declared variables.
type VariableNode struct {
	position
	Name string
}

func (n *VariableNode) String() string {
	return n.Name
}

// UnaryNode applies + or - to a single operand.
type UnaryNode struct {
	position
	Operator TokenType
	Node     Node
}

func (n *UnaryNode) String() string {
	return Format(n)
}

// BinaryNode applies an arithmetic operator to two operands.
type BinaryNode struct {
	position
	Operator TokenType
	Left     Node
	Right    Node
}

func (n *BinaryNode) String() string {
	return Format(n)
}

// FunctionNode calls a builtin single argument function.
type FunctionNode struct {
	position
	Func string
	Arg  Node
}

func (n *FunctionNode) String() string {
	return Format(n)
}

// FormatFloat renders v as the shortest literal the lexer accepts.
// Very large and very small magnitudes use exponent notation.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Operator precedence, higher binds tighter.
var precedence = [...]int{
	TokenPlus:  1,
	TokenMinus: 1,
	TokenMult:  2,
	TokenDiv:   2,
	TokenMod:   2,
	TokenPow:   4,
}

// unary operators sit between multiplicative operators and ^.
const unaryPrecedence = 3

func nodePrecedence(n Node) int {
	switch node := n.(type) {
	case *BinaryNode:
		return precedence[node.Operator]
	case *UnaryNode:
		return unaryPrecedence
	case *NumberNode:
		if node.Value < 0 {
			return unaryPrecedence
		}
	}
	return 5
}

// Format renders a tree as expression text with the minimal parentheses
// needed to parse back into the same tree.
func Format(n Node) string {
	var buf bytes.Buffer
	format(&buf, n)
	return buf.String()
}

// NeedsParens reports whether child, an operand of parent, must be
// parenthesized in expression text. left selects the left operand of a
// binary node and is ignored for unary nodes.
func NeedsParens(parent, child Node, left bool) bool {
	cp := nodePrecedence(child)
	switch node := parent.(type) {
	case *UnaryNode:
		return cp < unaryPrecedence
	case *BinaryNode:
		p := precedence[node.Operator]
		if node.Operator == TokenPow {
			// right-associative
			if left {
				return cp <= p
			}
			return cp < unaryPrecedence
		}
		if left {
			return cp < p
		}
		return cp <= p
	}
	return false
}

func format(buf *bytes.Buffer, n Node) {
	switch node := n.(type) {
	case *NumberNode:
		buf.WriteString(node.String())
	case *VariableNode:
		buf.WriteString(node.Name)
	case *UnaryNode:
		buf.WriteString(operatorStr[node.Operator])
		formatOperand(buf, node.Node, NeedsParens(node, node.Node, false))
	case *BinaryNode:
		formatOperand(buf, node.Left, NeedsParens(node, node.Left, true))
		buf.WriteString(operatorStr[node.Operator])
		formatOperand(buf, node.Right, NeedsParens(node, node.Right, false))
	case *FunctionNode:
		buf.WriteString(node.Func)
		buf.WriteByte('(')
		format(buf, node.Arg)
		buf.WriteByte(')')
	}
}

func formatOperand(buf *bytes.Buffer, n Node, parens bool) {
	if parens {
		buf.WriteByte('(')
	}
	format(buf, n)
	if parens {
		buf.WriteByte(')')
	}
}
