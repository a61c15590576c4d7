package sexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTokenBasic(t *testing.T) {
	l := New("(+ 1 -2 foo)")

	expected := []Token{
		{Type: LPAREN, Literal: "("},
		{Type: SYMBOL, Literal: "+"},
		{Type: NUMBER, Literal: "1"},
		{Type: NUMBER, Literal: "-2"},
		{Type: SYMBOL, Literal: "foo"},
		{Type: RPAREN, Literal: ")"},
		{Type: EOF, Literal: ""},
	}

	for i, want := range expected {
		got := l.NextToken()
		assert.Equal(t, want, got, "token %d", i)
	}
}

func TestNextTokenWhitespace(t *testing.T) {
	l := New("  \t\n  42  ")
	tok := l.NextToken()
	assert.Equal(t, NUMBER, tok.Type)
	assert.Equal(t, "42", tok.Literal)
}

func TestNextTokenInvalidCharacter(t *testing.T) {
	l := New("$")
	tok := l.NextToken()
	assert.Equal(t, ERROR, tok.Type)
}

func TestNextTokenOperators(t *testing.T) {
	for _, sym := range []string{"+", "-", "*", "<", ">", "<=", ">=", "=", "set!", "tset!"} {
		l := New(sym)
		tok := l.NextToken()
		assert.Equal(t, SYMBOL, tok.Type)
		assert.Equal(t, sym, tok.Literal)
	}
}
