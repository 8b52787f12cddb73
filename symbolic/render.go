package symbolic

import (
	"strings"

	"github.com/datamelt/fengine/expr"
)

const mathMLNamespace = "http://www.w3.org/1998/Math/MathML"

func mathML(root expr.Node) string {
	var b strings.Builder
	b.WriteString(`<math xmlns="` + mathMLNamespace + `">`)
	writeMathML(&b, root)
	b.WriteString("</math>")
	return b.String()
}

var mathMLOperators = map[expr.TokenType]string{
	expr.TokenPlus:  "+",
	expr.TokenMinus: "-",
	expr.TokenMult:  "&#x22C5;",
	expr.TokenMod:   "mod",
}

func writeMathMLOperand(b *strings.Builder, parent, child expr.Node, left bool) {
	if !expr.NeedsParens(parent, child, left) {
		writeMathML(b, child)
		return
	}
	b.WriteString("<mrow><mo>(</mo>")
	writeMathML(b, child)
	b.WriteString("<mo>)</mo></mrow>")
}

func writeMathML(b *strings.Builder, n expr.Node) {
	switch node := n.(type) {
	case *expr.NumberNode:
		if node.Value < 0 {
			b.WriteString("<mrow><mo>-</mo><mn>" + expr.FormatFloat(-node.Value) + "</mn></mrow>")
			return
		}
		b.WriteString("<mn>" + node.String() + "</mn>")
	case *expr.VariableNode:
		b.WriteString("<mi>" + node.Name + "</mi>")
	case *expr.UnaryNode:
		b.WriteString("<mrow><mo>" + node.Operator.String() + "</mo>")
		writeMathMLOperand(b, node, node.Node, false)
		b.WriteString("</mrow>")
	case *expr.BinaryNode:
		switch node.Operator {
		case expr.TokenDiv:
			b.WriteString("<mfrac>")
			writeMathML(b, node.Left)
			writeMathML(b, node.Right)
			b.WriteString("</mfrac>")
		case expr.TokenPow:
			b.WriteString("<msup>")
			writeMathMLOperand(b, node, node.Left, true)
			writeMathML(b, node.Right)
			b.WriteString("</msup>")
		default:
			b.WriteString("<mrow>")
			writeMathMLOperand(b, node, node.Left, true)
			b.WriteString("<mo>" + mathMLOperators[node.Operator] + "</mo>")
			writeMathMLOperand(b, node, node.Right, false)
			b.WriteString("</mrow>")
		}
	case *expr.FunctionNode:
		switch node.Func {
		case "sqrt":
			b.WriteString("<msqrt>")
			writeMathML(b, node.Arg)
			b.WriteString("</msqrt>")
		case "abs":
			b.WriteString("<mrow><mo>|</mo>")
			writeMathML(b, node.Arg)
			b.WriteString("<mo>|</mo></mrow>")
		default:
			b.WriteString("<mrow><mi>" + node.Func + "</mi><mo>&#x2061;</mo><mrow><mo>(</mo>")
			writeMathML(b, node.Arg)
			b.WriteString("<mo>)</mo></mrow></mrow>")
		}
	}
}

// Go operator precedence of the rendered forms. ^ and % become calls.
func goPrecedence(n expr.Node) int {
	switch node := n.(type) {
	case *expr.BinaryNode:
		switch node.Operator {
		case expr.TokenPlus, expr.TokenMinus:
			return 1
		case expr.TokenMult, expr.TokenDiv:
			return 2
		}
	case *expr.UnaryNode:
		return 3
	case *expr.NumberNode:
		if node.Value < 0 {
			return 3
		}
	}
	return 4
}

func goSource(root expr.Node) string {
	var b strings.Builder
	writeGo(&b, root)
	return b.String()
}

func writeGoOperand(b *strings.Builder, n expr.Node, parens bool) {
	if parens {
		b.WriteByte('(')
	}
	writeGo(b, n)
	if parens {
		b.WriteByte(')')
	}
}

func writeGo(b *strings.Builder, n expr.Node) {
	switch node := n.(type) {
	case *expr.NumberNode:
		s := expr.FormatFloat(node.Value)
		if !strings.ContainsAny(s, ".e") {
			// keep constant expressions like 1/2 out of integer arithmetic
			s += ".0"
		}
		b.WriteString(s)
	case *expr.VariableNode:
		b.WriteString(node.Name)
	case *expr.UnaryNode:
		b.WriteString(node.Operator.String())
		// a sign directly followed by a sign would lex as -- or ++
		writeGoOperand(b, node.Node, goPrecedence(node.Node) <= 3)
	case *expr.BinaryNode:
		switch node.Operator {
		case expr.TokenPow:
			writeGoCall(b, "math.Pow", node.Left, node.Right)
		case expr.TokenMod:
			writeGoCall(b, "math.Mod", node.Left, node.Right)
		default:
			p := goPrecedence(node)
			writeGoOperand(b, node.Left, goPrecedence(node.Left) < p)
			b.WriteString(" " + node.Operator.String() + " ")
			writeGoOperand(b, node.Right, goPrecedence(node.Right) <= p)
		}
	case *expr.FunctionNode:
		writeGoCall(b, "math."+strings.ToUpper(node.Func[:1])+node.Func[1:], node.Arg)
	}
}

func writeGoCall(b *strings.Builder, name string, args ...expr.Node) {
	b.WriteString(name + "(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		writeGo(b, a)
	}
	b.WriteByte(')')
}
