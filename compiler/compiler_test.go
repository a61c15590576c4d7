package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/snekc/parser"
)

func compileSrc(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	return New(nil).Compile(prog)
}

func TestCompileNumberLiteral(t *testing.T) {
	out, err := compileSrc(t, "5")
	require.NoError(t, err)
	assert.Contains(t, out, "our_code_starts_here:")
	assert.Contains(t, out, "mov rax, 10")
}

func TestCompileAddition(t *testing.T) {
	out, err := compileSrc(t, "(+ 1 2)")
	require.NoError(t, err)
	assert.Contains(t, out, "add rax, rcx")
	assert.Contains(t, out, "jo throw_error_align")
}

func TestCompileIfEmitsLabels(t *testing.T) {
	out, err := compileSrc(t, "(if true 1 2)")
	require.NoError(t, err)
	assert.Contains(t, out, "else_")
	assert.Contains(t, out, "endif_")
}

func TestCompileLoopBreak(t *testing.T) {
	out, err := compileSrc(t, "(loop (break 1))")
	require.NoError(t, err)
	assert.Contains(t, out, "loop_start_")
	assert.Contains(t, out, "loop_end_")
}

func TestCompileUnboundVariable(t *testing.T) {
	_, err := compileSrc(t, "x")
	assert.ErrorContains(t, err, "Unbound variable identifier x")
}

func TestCompileBreakOutsideLoop(t *testing.T) {
	_, err := compileSrc(t, "(break 1)")
	assert.Error(t, err)
}

func TestCompileFunctionCall(t *testing.T) {
	out, err := compileSrc(t, "(fun (double x) (+ x x)) (double 21)")
	require.NoError(t, err)
	assert.Contains(t, out, "double:")
	assert.Contains(t, out, "call double")
}

func TestCompileTupleRoundTrip(t *testing.T) {
	out, err := compileSrc(t, "(tget (tuple 1 2 3) 1)")
	require.NoError(t, err)
	assert.Contains(t, out, "and rcx, 3") // tuple-tag check
	assert.Contains(t, out, "add r15")    // bump allocator
}

func TestCompileInputBinding(t *testing.T) {
	out, err := compileSrc(t, "(add1 input)")
	require.NoError(t, err)
	assert.Contains(t, out, "mov qword ptr [rsp - 8], rdi")
}

func TestCompileSetBang(t *testing.T) {
	out, err := compileSrc(t, "(let ((x 1)) (block (set! x 2) x))")
	require.NoError(t, err)
	assert.Contains(t, out, "our_code_starts_here:")
}

func TestCompileEqualChecksTagMismatch(t *testing.T) {
	out, err := compileSrc(t, "(= 1 true)")
	require.NoError(t, err)
	assert.Contains(t, out, "xor rcx")
	assert.Contains(t, out, "jne throw_error_align")
}

func TestCompilePrintPreservesValue(t *testing.T) {
	out, err := compileSrc(t, "(+ 1 (print 2))")
	require.NoError(t, err)
	assert.Contains(t, out, "call snek_print")
	// the printed value must be reloaded from its save slot after the
	// call, not left clobbered in rax.
	assert.Contains(t, out, "mov rax, qword ptr [rsp")
}

func TestCompileThreeArgCallPlacesArgsWithoutOverlap(t *testing.T) {
	out, err := compileSrc(t, "(fun (f a b c) (+ a (+ b c))) (f 1 2 3)")
	require.NoError(t, err)
	assert.Contains(t, out, "f:")
	assert.Contains(t, out, "call f")
	// main's si is 2, so three args reserve alignedPad(5) = 5 words;
	// args 1, 2, 3 land in distinct slots 5, 4, 3 below rsp.
	assert.Contains(t, out, "mov qword ptr [rsp - 40], rax")
	assert.Contains(t, out, "mov qword ptr [rsp - 32], rax")
	assert.Contains(t, out, "mov qword ptr [rsp - 24], rax")
	assert.Contains(t, out, "sub rsp, 40")
}

func TestCompileDebugInsertsBreakpoint(t *testing.T) {
	prog, err := parser.Parse("5")
	require.NoError(t, err)
	c := New(nil)
	c.SetDebug(true)
	out, err := c.Compile(prog)
	require.NoError(t, err)
	assert.Contains(t, out, "int3")
}
