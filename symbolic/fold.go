package symbolic

import "github.com/datamelt/fengine/expr"

func isNumber(n expr.Node, v float64) bool {
	num, ok := n.(*expr.NumberNode)
	return ok && num.Value == v
}

func constant(n expr.Node) bool {
	_, ok := n.(*expr.NumberNode)
	return ok
}

// total reports whether n evaluates without error for finite variable
// values, so dropping it cannot hide an evaluation error.
func total(n expr.Node) bool {
	switch n.(type) {
	case *expr.NumberNode, *expr.VariableNode:
		return true
	}
	return false
}

// evaluate replaces a node with constant operands by its value.
// Nodes that fail to evaluate, like 1/0, are kept.
func evaluate(n expr.Node) expr.Node {
	v, err := expr.EvalNode(n, nil)
	if err != nil {
		return n
	}
	return expr.NewNumber(v)
}

// fold returns a copy of n with constant sub-expressions evaluated and,
// when identities is set, neutral elements removed.
func fold(n expr.Node, identities bool) expr.Node {
	switch node := n.(type) {
	case *expr.UnaryNode:
		operand := fold(node.Node, identities)
		if node.Operator == expr.TokenPlus {
			return operand
		}
		if num, ok := operand.(*expr.NumberNode); ok {
			return expr.NewNumber(-num.Value)
		}
		if inner, ok := operand.(*expr.UnaryNode); ok && identities && inner.Operator == expr.TokenMinus {
			return inner.Node
		}
		return &expr.UnaryNode{Operator: node.Operator, Node: operand}
	case *expr.BinaryNode:
		l := fold(node.Left, identities)
		r := fold(node.Right, identities)
		b := &expr.BinaryNode{Operator: node.Operator, Left: l, Right: r}
		if constant(l) && constant(r) {
			return evaluate(b)
		}
		if identities {
			return simplifyBinary(b)
		}
		return b
	case *expr.FunctionNode:
		f := &expr.FunctionNode{Func: node.Func, Arg: fold(node.Arg, identities)}
		if constant(f.Arg) {
			return evaluate(f)
		}
		return f
	}
	return n
}

func negate(n expr.Node) expr.Node {
	return &expr.UnaryNode{Operator: expr.TokenMinus, Node: n}
}

func simplifyBinary(b *expr.BinaryNode) expr.Node {
	l, r := b.Left, b.Right
	switch b.Operator {
	case expr.TokenPlus:
		if isNumber(l, 0) {
			return r
		}
		if isNumber(r, 0) {
			return l
		}
	case expr.TokenMinus:
		if isNumber(r, 0) {
			return l
		}
		if isNumber(l, 0) {
			return negate(r)
		}
	case expr.TokenMult:
		if (isNumber(l, 0) && total(r)) || (isNumber(r, 0) && total(l)) {
			return expr.NewNumber(0)
		}
		if isNumber(l, 1) {
			return r
		}
		if isNumber(r, 1) {
			return l
		}
	case expr.TokenDiv:
		if isNumber(r, 1) {
			return l
		}
	case expr.TokenPow:
		if isNumber(r, 0) && total(l) {
			return expr.NewNumber(1)
		}
		if isNumber(r, 1) {
			return l
		}
	}
	return b
}
