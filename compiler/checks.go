package compiler

import "github.com/skx/snekc/asmil"

// runtime error codes, passed to the shared trampoline in rbx.
const (
	errMismatch = 7
	errOverflow = 8
	errBounds   = 9
)

// trampolineLabel is the single shared error-handling code block every
// inline check jumps to. It is emitted once, in the prologue.
const trampolineLabel = "throw_error_align"

// checkTagMismatch emits an inline test that the tagged value at loc
// has its low bit clear (an integer) or, for the equality case, that
// XORing two tagged values together left the low bit clear (same
// kind). On failure it jumps to the error trampoline staged with the
// mismatch code.
func checkTagMismatch(v asmil.Val) []asmil.Instr {
	return []asmil.Instr{
		asmil.Test(v, asmil.Imm(1)),
		asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(errMismatch)),
		asmil.Jne(trampolineLabel),
	}
}

// checkOverflow emits an inline overflow-flag test following an add,
// sub, or imul. On failure it jumps to the error trampoline staged
// with the overflow code.
func checkOverflow() []asmil.Instr {
	return []asmil.Instr{
		asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(errOverflow)),
		asmil.Jo(trampolineLabel),
	}
}

// checkTupleTag emits an inline test that v carries the tuple tag
// (low two bits 01, as opposed to an integer's low bit 0 or a
// boolean's low two bits 11). scratch is clobbered with v's masked
// low bits. On failure it jumps to the trampoline staged with the
// mismatch code.
func checkTupleTag(v asmil.Val, scratch asmil.Reg) []asmil.Instr {
	s := asmil.Register(scratch)
	return []asmil.Instr{
		asmil.Mov(s, v),
		asmil.And(s, asmil.Imm(3)),
		asmil.Cmp(s, asmil.Imm(1)),
		asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(errMismatch)),
		asmil.Jne(trampolineLabel),
	}
}

// checkBounds emits an inline bounds test: if idx (already converted
// to an untagged element count) is >= len, jump to the trampoline
// staged with the bounds code. idxReg and lenVal must already hold
// comparable untagged integers.
func checkBounds(idxReg asmil.Reg, lenVal asmil.Val) []asmil.Instr {
	return []asmil.Instr{
		asmil.Cmp(asmil.Register(idxReg), lenVal),
		asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(errBounds)),
		asmil.Jge(trampolineLabel),
	}
}
