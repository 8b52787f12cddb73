package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserLookAhead(t *testing.T) {
	assert := assert.New(t)

	p := &parser{}
	p.lex = lex("0 1 2 3")

	assert.Equal(token{TokenNumber, 0, "0"}, p.next())
	assert.Equal(token{TokenNumber, 2, "1"}, p.peek())
	assert.Equal(token{TokenNumber, 2, "1"}, p.next())
	p.backup()
	assert.Equal(token{TokenNumber, 2, "1"}, p.next())
	assert.Equal(token{TokenNumber, 4, "2"}, p.peek())
	p.backup()
	assert.Equal(token{TokenNumber, 2, "1"}, p.next())
	assert.Equal(token{TokenNumber, 4, "2"}, p.next())
	assert.Equal(token{TokenNumber, 6, "3"}, p.next())
	assert.Equal(TokenEOF, p.next().typ)
}

func TestParseErrors(t *testing.T) {
	type testCase struct {
		Text  string
		Vars  []string
		Error string
	}

	cases := []testCase{
		{
			Text:  "foo(x)",
			Vars:  []string{"x"},
			Error: `parser: unknown function "foo" at char 1 in "foo(x)"`,
		},
		{
			Text:  "2*y",
			Vars:  []string{"x"},
			Error: `parser: unknown identifier "y" at char 3 in "2*y"`,
		},
		{
			Text:  "sin",
			Vars:  []string{"x"},
			Error: `parser: function "sin" requires an argument at char 1 in "sin"`,
		},
		{
			Text:  "(x+1",
			Vars:  []string{"x"},
			Error: `parser: unbalanced parentheses at char 1 in "(x+1"`,
		},
		{
			Text:  "x+1)",
			Vars:  []string{"x"},
			Error: `parser: unbalanced parentheses at char 4 in "x+1)"`,
		},
		{
			Text:  "x+",
			Vars:  []string{"x"},
			Error: `parser: missing operand at char 3 in "x+"`,
		},
		{
			Text:  "",
			Error: `parser: missing operand at char 1 in ""`,
		},
		{
			Text:  "sin(x, 1)",
			Vars:  []string{"x"},
			Error: `parser: function "sin" expects 1 argument, got 2 at char 1 in "sin(x, 1)"`,
		},
		{
			Text:  "sin()",
			Vars:  []string{"x"},
			Error: `parser: function "sin" expects 1 argument, got 0 at char 4 in "sin()"`,
		},
		{
			Text:  "x # 2",
			Vars:  []string{"x"},
			Error: `parser: unexpected character '#' at char 3 in "x # 2"`,
		},
		{
			Text:  "*x",
			Vars:  []string{"x"},
			Error: `parser: unexpected "*", expected number or identifier or ( or - at char 1 in "*x"`,
		},
		{
			Text:  "x y",
			Vars:  []string{"x", "y"},
			Error: `parser: unexpected "y", expected EOF at char 3 in "x y"`,
		},
	}

	for _, tc := range cases {
		e, err := Parse(tc.Text, tc.Vars...)
		assert.Nil(t, e, tc.Text)
		if assert.Error(t, err, tc.Text) {
			if exp, got := tc.Error, err.Error(); got != exp {
				t.Errorf("unexpected error: \ngot %s \nexp %s", got, exp)
			}
			_, ok := err.(*ParseError)
			assert.True(t, ok, "expected *ParseError got %T", err)
		}
	}
}

func TestParseDepth(t *testing.T) {
	nested := func(open, leaf, close string, n int) string {
		return strings.Repeat(open, n) + leaf + strings.Repeat(close, n)
	}
	deep := []string{
		nested("(", "x", ")", 100000),
		nested("-", "x", "", MaxDepth+1),
		nested("sin(", "x", ")", MaxDepth+1),
		nested("", "x", "^x", MaxDepth+1),
		nested("", "x", "+x", MaxDepth+1),
	}
	for _, text := range deep {
		_, err := Parse(text, "x")
		require.Error(t, err)
		perr, ok := err.(*ParseError)
		require.True(t, ok, "expected *ParseError got %T", err)
		assert.Equal(t, "expression nested too deeply", perr.Msg)
	}

	shallow := []string{
		nested("(", "x", ")", MaxDepth/2),
		nested("", "x", "+x", MaxDepth/2),
		nested("sin(", "x", ")", MaxDepth/2),
	}
	for _, text := range shallow {
		e, err := Parse(text, "x")
		require.NoError(t, err)
		_, err = e.Eval(Vars{"x": 0.5})
		assert.NoError(t, err)
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		text string
		exp  string
	}{
		{text: "2 * x + 1", exp: "2*x+1"},
		{text: "-x^2", exp: "-x^2"},
		{text: "(-x)^2", exp: "(-x)^2"},
		{text: "2^3^2", exp: "2^3^2"},
		{text: "(2^3)^2", exp: "(2^3)^2"},
		{text: "x-(y-1)", exp: "x-(y-1)"},
		{text: "(x-y)-1", exp: "x-y-1"},
		{text: "x*(y+1)", exp: "x*(y+1)"},
		{text: "x/(y*2)", exp: "x/(y*2)"},
		{text: "2^-1", exp: "2^-1"},
		{text: "+x", exp: "+x"},
		{text: "-(x+y)", exp: "-(x+y)"},
		{text: "sqrt((x))", exp: "sqrt(x)"},
		{text: "3.14159265*x", exp: "3.14159265*x"},
	}
	for _, tc := range cases {
		e, err := Parse(tc.text, "x", "y")
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.exp, e.String(), tc.text)
		assert.Equal(t, tc.text, e.Text())

		// the canonical form parses back into the same text
		again, err := Parse(e.String(), "x", "y")
		require.NoError(t, err, tc.exp)
		assert.Equal(t, tc.exp, again.String())
	}
}

func TestParseVariables(t *testing.T) {
	e, err := Parse("y*sin(x)+y", "x", "y", "z")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, e.Variables())

	e, err = Parse("42", "x")
	require.NoError(t, err)
	assert.Empty(t, e.Variables())
}

func TestParseTree(t *testing.T) {
	n, err := ParseTree("-x^2", "x")
	require.NoError(t, err)
	u, ok := n.(*UnaryNode)
	require.True(t, ok, "got %T", n)
	assert.Equal(t, TokenMinus, u.Operator)
	b, ok := u.Node.(*BinaryNode)
	require.True(t, ok, "got %T", u.Node)
	assert.Equal(t, TokenPow, b.Operator)
	assert.Equal(t, 2, b.Position())
}
