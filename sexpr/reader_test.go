package sexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSimpleList(t *testing.T) {
	n, err := Read("(+ 1 2)")
	require.NoError(t, err)
	require.Equal(t, NodeList, n.Kind)
	require.Len(t, n.Children, 1)

	form := n.Children[0]
	require.Equal(t, NodeList, form.Kind)
	require.Len(t, form.Children, 3)
	assert.Equal(t, "+", form.Children[0].Symbol)
	assert.Equal(t, int64(1), form.Children[1].Number)
	assert.Equal(t, int64(2), form.Children[2].Number)
}

func TestReadNegativeNumber(t *testing.T) {
	n, err := Read("-17")
	require.NoError(t, err)
	require.Len(t, n.Children, 1)
	assert.Equal(t, int64(-17), n.Children[0].Number)
}

func TestReadMultipleTopLevelForms(t *testing.T) {
	n, err := Read("(fun (f x) x) (f 5)")
	require.NoError(t, err)
	require.Len(t, n.Children, 2)
}

func TestReadUnterminatedList(t *testing.T) {
	_, err := Read("(+ 1 2")
	assert.Error(t, err)
}

func TestReadUnexpectedCloseParen(t *testing.T) {
	_, err := Read(")")
	assert.Error(t, err)
}

func TestReadInvalidCharacter(t *testing.T) {
	_, err := Read("$")
	assert.Error(t, err)
}
