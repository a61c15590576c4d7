package asmil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderRegisterAndImmediate(t *testing.T) {
	i := Mov(Register(RAX), Imm(4))
	assert.Equal(t, "mov rax, 4", Render(i))
}

func TestRenderMemPtrOffsets(t *testing.T) {
	assert.Equal(t, "mov qword ptr [rsp - 8], rax", Render(Mov(MemPtr(RSP, -8), Register(RAX))))
	assert.Equal(t, "mov rax, qword ptr [rsp + 8]", Render(Mov(Register(RAX), MemPtr(RSP, 8))))
	assert.Equal(t, "mov rax, qword ptr [rcx]", Render(Mov(Register(RAX), MemPtr(RCX, 0))))
}

func TestRenderLabelAndJump(t *testing.T) {
	assert.Equal(t, "loop_start_1:", Render(LabelDef("loop_start_1")))
	assert.Equal(t, "jmp loop_start_1", Render(Jmp("loop_start_1")))
	assert.Equal(t, "je else_2", Render(Je("else_2")))
}

func TestRenderCallAndRet(t *testing.T) {
	assert.Equal(t, "call snek_print", Render(Call("snek_print")))
	assert.Equal(t, "ret", Render(Ret))
}

func TestRenderAllIndentsExceptLabels(t *testing.T) {
	out := RenderAll([]Instr{
		LabelDef("start"),
		Mov(Register(RAX), Imm(1)),
		Ret,
	})
	assert.Equal(t, "start:\n        mov rax, 1\n        ret\n", out)
}

func TestRegisterStringUnknown(t *testing.T) {
	var r Reg = 999
	assert.Equal(t, "??", r.String())
}
