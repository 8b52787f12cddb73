package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestLex(t *testing.T) {
	type testCase struct {
		in     string
		tokens []token
	}

	test := func(tc testCase) {
		l := lex(tc.in)
		if diff := cmp.Diff(tc.tokens, l.tokens, cmp.AllowUnexported(token{})); diff != "" {
			t.Errorf("unexpected tokens for %q -want/+got:\n%s", tc.in, diff)
		}
	}

	cases := []testCase{
		{
			in: "",
			tokens: []token{
				{TokenEOF, 0, ""},
			},
		},
		{
			in: "2*x + 1",
			tokens: []token{
				{TokenNumber, 0, "2"},
				{TokenMult, 1, "*"},
				{TokenIdent, 2, "x"},
				{TokenPlus, 4, "+"},
				{TokenNumber, 6, "1"},
				{TokenEOF, 7, ""},
			},
		},
		{
			in: "sin(x)^-2",
			tokens: []token{
				{TokenIdent, 0, "sin"},
				{TokenLParen, 3, "("},
				{TokenIdent, 4, "x"},
				{TokenRParen, 5, ")"},
				{TokenPow, 6, "^"},
				{TokenMinus, 7, "-"},
				{TokenNumber, 8, "2"},
				{TokenEOF, 9, ""},
			},
		},
		{
			in: "1.5e-3%.5",
			tokens: []token{
				{TokenNumber, 0, "1.5e-3"},
				{TokenMod, 6, "%"},
				{TokenNumber, 7, ".5"},
				{TokenEOF, 9, ""},
			},
		},
		{
			in: "2e",
			tokens: []token{
				{TokenNumber, 0, "2"},
				{TokenIdent, 1, "e"},
				{TokenEOF, 2, ""},
			},
		},
		{
			in: "log10(x_1, y)",
			tokens: []token{
				{TokenIdent, 0, "log10"},
				{TokenLParen, 5, "("},
				{TokenIdent, 6, "x_1"},
				{TokenComma, 9, ","},
				{TokenIdent, 11, "y"},
				{TokenRParen, 12, ")"},
				{TokenEOF, 13, ""},
			},
		},
		{
			in: "x $ 1",
			tokens: []token{
				{TokenIdent, 0, "x"},
				{TokenError, 2, `unexpected character '$'`},
			},
		},
		{
			in: "1..2",
			tokens: []token{
				{TokenError, 0, "multiple decimals in number"},
			},
		},
		{
			in: "x**2",
			tokens: []token{
				{TokenIdent, 0, "x"},
				{TokenError, 1, `unexpected operator "**", use "^"`},
			},
		},
	}

	for _, tc := range cases {
		test(tc)
	}
}

func TestLexValues(t *testing.T) {
	vals, err := Lex("2*pi - x")
	assert.NoError(t, err)
	assert.Equal(t, []string{"2", "*", "pi", "-", "x"}, vals)

	vals, err = Lex("x ? 2")
	assert.Equal(t, []string{"x"}, vals)
	if assert.Error(t, err) {
		assert.Equal(t, `parser: unexpected character '?' at char 3 in "x ? 2"`, err.Error())
	}
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "^", TokenPow.String())
	assert.Equal(t, "identifier", TokenIdent.String())
	assert.True(t, IsOperator(TokenMod))
	assert.False(t, IsOperator(TokenComma))
}
