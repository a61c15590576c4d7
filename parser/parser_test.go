package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/snekc/ast"
)

func TestParseNumber(t *testing.T) {
	prog, err := Parse("5")
	require.NoError(t, err)
	assert.Equal(t, ast.ExprNumber, prog.Main.Kind)
	assert.Equal(t, int64(5), prog.Main.Number)
}

func TestParseOutOfRangeNumber(t *testing.T) {
	_, err := Parse("4611686018427387904")
	assert.Error(t, err)
}

func TestParseBooleans(t *testing.T) {
	prog, err := Parse("true")
	require.NoError(t, err)
	assert.True(t, prog.Main.Boolean)

	prog, err = Parse("false")
	require.NoError(t, err)
	assert.False(t, prog.Main.Boolean)
}

func TestParseLet(t *testing.T) {
	prog, err := Parse("(let ((x 1) (y 2)) (+ x y))")
	require.NoError(t, err)
	require.Equal(t, ast.ExprLet, prog.Main.Kind)
	require.Len(t, prog.Main.Bindings, 2)
	assert.Equal(t, "x", prog.Main.Bindings[0].Name)
	assert.Equal(t, "y", prog.Main.Bindings[1].Name)
	assert.Equal(t, ast.ExprBinOp, prog.Main.Body.Kind)
}

func TestParseDuplicateBinding(t *testing.T) {
	_, err := Parse("(let ((x 1) (x 2)) x)")
	assert.Error(t, err)
}

func TestParseReservedWordAsIdentifier(t *testing.T) {
	_, err := Parse("(let ((if 1)) if)")
	assert.Error(t, err)
}

func TestParseUnaryOps(t *testing.T) {
	prog, err := Parse("(add1 5)")
	require.NoError(t, err)
	assert.Equal(t, ast.Add1, prog.Main.UnaryOp)

	_, err = Parse("(add1 5 6)")
	assert.Error(t, err)
}

func TestParseBinaryOps(t *testing.T) {
	prog, err := Parse("(< 1 2)")
	require.NoError(t, err)
	assert.Equal(t, ast.Lt, prog.Main.BinaryOp)
}

func TestParseIf(t *testing.T) {
	prog, err := Parse("(if true 1 2)")
	require.NoError(t, err)
	require.Equal(t, ast.ExprIf, prog.Main.Kind)
}

func TestParseIfWrongArity(t *testing.T) {
	_, err := Parse("(if true 1)")
	assert.Error(t, err)
}

func TestParseLoopAndBreak(t *testing.T) {
	prog, err := Parse("(loop (break 5))")
	require.NoError(t, err)
	require.Equal(t, ast.ExprLoop, prog.Main.Kind)
	require.Equal(t, ast.ExprBreak, prog.Main.Body.Kind)
}

func TestParseBlock(t *testing.T) {
	prog, err := Parse("(block 1 2 3)")
	require.NoError(t, err)
	require.Len(t, prog.Main.Exprs, 3)
}

func TestParseEmptyBlock(t *testing.T) {
	_, err := Parse("(block)")
	assert.Error(t, err)
}

func TestParseTuple(t *testing.T) {
	prog, err := Parse("(tuple 1 2 3)")
	require.NoError(t, err)
	require.Equal(t, ast.ExprTuple, prog.Main.Kind)
	require.Len(t, prog.Main.Exprs, 3)
}

func TestParseTGetAndTSet(t *testing.T) {
	prog, err := Parse("(tget (tuple 1 2) 0)")
	require.NoError(t, err)
	require.Equal(t, ast.ExprTGet, prog.Main.Kind)

	prog, err = Parse("(tset! (tuple 1 2) 0 9)")
	require.NoError(t, err)
	require.Equal(t, ast.ExprTSet, prog.Main.Kind)
}

func TestParseFunctionDefinitionAndCall(t *testing.T) {
	prog, err := Parse("(fun (double x) (+ x x)) (double 21)")
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, "double", prog.Functions[0].Name)
	assert.Equal(t, []string{"x"}, prog.Functions[0].Params)
	require.Equal(t, ast.ExprCall, prog.Main.Kind)
	assert.Equal(t, "double", prog.Main.CallName)
}

func TestParseForwardReferenceBetweenFunctions(t *testing.T) {
	_, err := Parse("(fun (even n) (if (= n 0) true (odd (sub1 n)))) (fun (odd n) (if (= n 0) false (even (sub1 n)))) (even 10)")
	require.NoError(t, err)
}

func TestParseUndeclaredFunctionCall(t *testing.T) {
	_, err := Parse("(mystery 1 2)")
	assert.Error(t, err)
}

func TestParseDuplicateFunctionName(t *testing.T) {
	_, err := Parse("(fun (f x) x) (fun (f y) y) (f 1)")
	assert.Error(t, err)
}

func TestParseInputIsAllowedAsIdentifier(t *testing.T) {
	prog, err := Parse("(add1 input)")
	require.NoError(t, err)
	assert.Equal(t, ast.ExprId, prog.Main.Body.Kind)
	assert.Equal(t, "input", prog.Main.Body.Name)
}

func TestParseInvalidIdentifier(t *testing.T) {
	_, err := Parse("(let ((1x 5)) 1x)")
	assert.Error(t, err)
}
