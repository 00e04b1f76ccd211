package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dish/internal/ir"
)

func TestCompileResolved(t *testing.T) {
	m := ir.NewModel()
	m.AddElement(ir.Element{Name: "a"})
	m.AddElement(ir.Element{Name: "b"})

	expr, err := CompileResolved("!b * a + true", m)
	require.NoError(t, err)
	require.Len(t, expr, 6)

	assert.Equal(t, ir.TokOperand, expr[0].Kind)
	assert.Equal(t, 1, expr[0].Index)
	assert.Equal(t, ir.TokNot, expr[1].Kind)
	assert.Equal(t, 0, expr[2].Index)
	assert.Equal(t, ir.TokConst, expr[4].Kind)
	assert.Equal(t, uint8(1), expr[4].Value)
}

func TestCompileResolved_UnknownElement(t *testing.T) {
	m := ir.NewModel()
	m.AddElement(ir.Element{Name: "a"})

	_, err := CompileResolved("a + ghost", m)
	require.Error(t, err)
	assert.True(t, IsUnknownElement(err))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "ghost", loadErr.Element)
}

func TestCompileResolved_Malformed(t *testing.T) {
	_, err := CompileResolved("a * (b", ir.NewModel())
	assert.True(t, IsMalformedExpression(err))
}
