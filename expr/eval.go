package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Vars binds variable names to values for a single evaluation.
type Vars map[string]float64

// EvalError reports a failed evaluation together with the operation and
// operand values that triggered it.
type EvalError struct {
	// Op is the operator, function or variable name that failed.
	Op    string
	Args  []float64
	Cause error
}

func (e *EvalError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = FormatFloat(a)
	}
	return fmt.Sprintf("failed to evaluate %s(%s): %v", e.Op, strings.Join(args, ", "), e.Cause)
}

func (e *EvalError) Unwrap() error {
	return e.Cause
}

// Expression is a compiled expression.
// It is immutable and may be evaluated concurrently with distinct Vars.
type Expression struct {
	text      string
	root      Node
	evaluator nodeEvaluator
	variables []string
}

// Eval evaluates the expression with the given bindings.
// The result is always finite when err is nil.
func (e *Expression) Eval(vars Vars) (float64, error) {
	return e.evaluator.eval(vars)
}

// Text returns the text the expression was parsed from.
func (e *Expression) Text() string {
	return e.text
}

// String returns the canonical text of the parsed tree.
func (e *Expression) String() string {
	return Format(e.root)
}

// Root returns the parsed tree.
func (e *Expression) Root() Node {
	return e.root
}

// Variables returns the sorted names of the variables the expression references.
func (e *Expression) Variables() []string {
	return append([]string(nil), e.variables...)
}

// EvalNode compiles and evaluates a tree in one step.
func EvalNode(n Node, vars Vars) (float64, error) {
	ev, err := createNodeEvaluator(n)
	if err != nil {
		return 0, err
	}
	return ev.eval(vars)
}

type nodeEvaluator interface {
	eval(vars Vars) (float64, error)
}

func createNodeEvaluator(n Node) (nodeEvaluator, error) {
	switch node := n.(type) {
	case *NumberNode:
		return evalNumber(node.Value), nil
	case *VariableNode:
		return evalVariable(node.Name), nil
	case *UnaryNode:
		operand, err := createNodeEvaluator(node.Node)
		if err != nil {
			return nil, err
		}
		switch node.Operator {
		case TokenPlus:
			return operand, nil
		case TokenMinus:
			return &evalNegate{operand: operand}, nil
		}
		return nil, fmt.Errorf("invalid unary operator %v", node.Operator)
	case *BinaryNode:
		fn, ok := binaryOps[node.Operator]
		if !ok {
			return nil, fmt.Errorf("invalid binary operator %v", node.Operator)
		}
		left, err := createNodeEvaluator(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := createNodeEvaluator(node.Right)
		if err != nil {
			return nil, err
		}
		return &evalBinary{
			op:    operatorStr[node.Operator],
			fn:    fn,
			left:  left,
			right: right,
		}, nil
	case *FunctionNode:
		f, ok := builtins[node.Func]
		if !ok {
			return nil, fmt.Errorf("unknown function %q", node.Func)
		}
		arg, err := createNodeEvaluator(node.Arg)
		if err != nil {
			return nil, err
		}
		return &evalFunction{name: node.Func, f: f, arg: arg}, nil
	}
	return nil, fmt.Errorf("given node type is not valid evaluation node: %T", n)
}

type evalNumber float64

func (n evalNumber) eval(Vars) (float64, error) {
	return float64(n), nil
}

type evalVariable string

func (n evalVariable) eval(vars Vars) (float64, error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, &EvalError{Op: string(n), Cause: errors.Wrapf(ErrUndefinedVariable, "name %q", string(n))}
	}
	if !isFinite(v) {
		return 0, &EvalError{Op: string(n), Args: []float64{v}, Cause: ErrNonFinite}
	}
	return v, nil
}

type evalNegate struct {
	operand nodeEvaluator
}

func (n *evalNegate) eval(vars Vars) (float64, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type binaryFn func(l, r float64) (float64, error)

var binaryOps = map[TokenType]binaryFn{
	TokenPlus:  func(l, r float64) (float64, error) { return l + r, nil },
	TokenMinus: func(l, r float64) (float64, error) { return l - r, nil },
	TokenMult:  func(l, r float64) (float64, error) { return l * r, nil },
	TokenDiv: func(l, r float64) (float64, error) {
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	},
	TokenMod: func(l, r float64) (float64, error) {
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Mod(l, r), nil
	},
	TokenPow: func(l, r float64) (float64, error) {
		if l == 0 && r < 0 {
			return 0, ErrDivisionByZero
		}
		v := math.Pow(l, r)
		if math.IsNaN(v) {
			// negative base with a fractional exponent
			return 0, ErrDomain
		}
		return v, nil
	},
}

type evalBinary struct {
	op    string
	fn    binaryFn
	left  nodeEvaluator
	right nodeEvaluator
}

func (n *evalBinary) eval(vars Vars) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	v, err := n.fn(l, r)
	if err == nil && !isFinite(v) {
		err = ErrNonFinite
	}
	if err != nil {
		return 0, &EvalError{Op: n.op, Args: []float64{l, r}, Cause: err}
	}
	return v, nil
}

type evalFunction struct {
	name string
	f    Func
	arg  nodeEvaluator
}

func (n *evalFunction) eval(vars Vars) (float64, error) {
	x, err := n.arg.eval(vars)
	if err != nil {
		return 0, err
	}
	v, err := n.f.Call(x)
	if err == nil && !isFinite(v) {
		err = ErrNonFinite
	}
	if err != nil {
		return 0, &EvalError{Op: n.name, Args: []float64{x}, Cause: err}
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
