package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/ir"
)

func TestCompileExpression(t *testing.T) {
	tests := []struct {
		name  string
		infix string
		want  string
	}{
		{"single operand", "a", "a"},
		{"and binds tighter than or", "a*b+c", "a b * c +"},
		{"or then and", "a+b*c", "a b c * +"},
		{"left associative or", "a+b+c", "a b + c +"},
		{"not binds tightest", "!a*b", "a ! b *"},
		{"not on right operand", "a*!b", "a b ! *"},
		{"double negation", "!!a", "a ! !"},
		{"negated group", "!(a+b)", "a b + !"},
		{"parentheses override precedence", "(a+b)*c", "a b + c *"},
		{"nested parentheses", "((a))", "a"},
		{"whitespace ignored", "  a  *  ( b + c ) ", "a b c + *"},
		{"literals are operands", "a*true+false", "a true * false +"},
		{"long names", "gene_1*protein-2", "gene_1 protein-2 *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileExpression(tt.infix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Join(got, " "))
		})
	}
}

func TestCompileExpression_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		infix string
	}{
		{"unclosed parenthesis", "(a+b"},
		{"unopened parenthesis", "a+b)"},
		{"empty", ""},
		{"only whitespace", "   "},
		{"missing right operand", "a+"},
		{"missing left operand", "*a"},
		{"dangling not", "a*!"},
		{"adjacent operands", "a b"},
		{"empty parentheses", "()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileExpression(tt.infix)
			require.Error(t, err)
			assert.True(t, IsMalformedExpression(err), "got %v", err)
		})
	}
}

func TestCompileTokens_Kinds(t *testing.T) {
	tokens, err := compileTokens("!a*TRUE+false")
	require.NoError(t, err)

	kinds := make([]ir.TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
		assert.Equal(t, -1, tok.Index)
	}
	assert.Equal(t, []ir.TokenKind{
		ir.TokOperand, ir.TokNot, ir.TokConst, ir.TokAnd, ir.TokConst, ir.TokOr,
	}, kinds)
	assert.Equal(t, uint8(1), tokens[2].Value)
	assert.Equal(t, uint8(0), tokens[4].Value)
}
