// Package asmil is the abstract assembly intermediate representation
// the compiler lowers a Program into, and the narrow x86-64 text
// dialect that gets rendered from it. It plays the role the teacher's
// instructions package plays for the RPN calculator: a small closed
// set of operation types the compiler emits and a renderer walks.
package asmil

import "fmt"

// Reg names one of the seven registers the lowering ever touches
// directly (the remaining general-purpose registers are free for the
// assembler's own use and never appear in emitted code).
type Reg int

// the registers the compiler's lowering addresses by name.
const (
	RAX Reg = iota // accumulator / result register
	RBX            // scratch register, staged error code
	RCX            // scratch register
	RSP            // stack pointer
	RDI            // first C argument register; holds "input" on entry
	RSI            // second C argument register; holds the heap base on entry
	R15            // bump-allocator heap cursor
)

func (r Reg) String() string {
	switch r {
	case RAX:
		return "rax"
	case RBX:
		return "rbx"
	case RCX:
		return "rcx"
	case RSP:
		return "rsp"
	case RDI:
		return "rdi"
	case RSI:
		return "rsi"
	case R15:
		return "r15"
	default:
		return "??"
	}
}

// Val is an assembly operand: a register, an immediate, a
// register-plus-offset memory reference, or a label reference.
type Val struct {
	kind   valKind
	reg    Reg
	imm    int64
	offset int32
	label  string
}

type valKind int

const (
	valReg valKind = iota
	valImm
	valMem
	valLabel
)

// Register builds a register operand.
func Register(r Reg) Val { return Val{kind: valReg, reg: r} }

// Imm builds an immediate-integer operand.
func Imm(n int64) Val { return Val{kind: valImm, imm: n} }

// MemPtr builds a "qword ptr [reg + offset]" operand (offset may be
// negative, zero, or positive; rendering splits the sign).
func MemPtr(r Reg, offset int32) Val { return Val{kind: valMem, reg: r, offset: offset} }

// Label builds a bare label reference, used as a jump/call target.
func Label(name string) Val { return Val{kind: valLabel, label: name} }

func (v Val) render() string {
	switch v.kind {
	case valReg:
		return v.reg.String()
	case valImm:
		return fmt.Sprintf("%d", v.imm)
	case valMem:
		switch {
		case v.offset < 0:
			return fmt.Sprintf("qword ptr [%s - %d]", v.reg, -v.offset)
		case v.offset > 0:
			return fmt.Sprintf("qword ptr [%s + %d]", v.reg, v.offset)
		default:
			return fmt.Sprintf("qword ptr [%s]", v.reg)
		}
	case valLabel:
		return v.label
	default:
		return "??"
	}
}

// Op names an instruction mnemonic in the narrow dialect the renderer
// understands.
type Op int

// the instruction mnemonics the lowering ever emits.
const (
	OpLabel Op = iota
	OpMov
	OpAdd
	OpSub
	OpIMul
	OpAnd
	OpXor
	OpSar
	OpTest
	OpCmp
	OpCMovl
	OpCMovg
	OpCMovle
	OpCMovge
	OpCMove
	OpJmp
	OpJe
	OpJne
	OpJl
	OpJle
	OpJg
	OpJge
	OpJo
	OpPush
	OpPop
	OpCall
	OpRet
)

var mnemonics = map[Op]string{
	OpMov: "mov", OpAdd: "add", OpSub: "sub", OpIMul: "imul", OpAnd: "and",
	OpXor: "xor", OpSar: "sar", OpTest: "test", OpCmp: "cmp",
	OpCMovl: "cmovl", OpCMovg: "cmovg", OpCMovle: "cmovle", OpCMovge: "cmovge", OpCMove: "cmove",
	OpJmp: "jmp", OpJe: "je", OpJne: "jne", OpJl: "jl", OpJle: "jle", OpJg: "jg", OpJge: "jge", OpJo: "jo",
	OpPush: "push", OpPop: "pop", OpCall: "call",
}

// Instr is one abstract assembly instruction: an operator plus zero,
// one, or two operands, depending on the operator's arity.
type Instr struct {
	Op   Op
	A, B Val
}

// two-operand instruction constructors.
func Mov(dst, src Val) Instr   { return Instr{Op: OpMov, A: dst, B: src} }
func Add(dst, src Val) Instr   { return Instr{Op: OpAdd, A: dst, B: src} }
func Sub(dst, src Val) Instr   { return Instr{Op: OpSub, A: dst, B: src} }
func IMul(dst, src Val) Instr  { return Instr{Op: OpIMul, A: dst, B: src} }
func And(dst, src Val) Instr   { return Instr{Op: OpAnd, A: dst, B: src} }
func Xor(dst, src Val) Instr   { return Instr{Op: OpXor, A: dst, B: src} }
func Sar(dst, src Val) Instr   { return Instr{Op: OpSar, A: dst, B: src} }
func Test(a, b Val) Instr      { return Instr{Op: OpTest, A: a, B: b} }
func Cmp(a, b Val) Instr       { return Instr{Op: OpCmp, A: a, B: b} }
func CMovl(dst, src Val) Instr { return Instr{Op: OpCMovl, A: dst, B: src} }
func CMovg(dst, src Val) Instr { return Instr{Op: OpCMovg, A: dst, B: src} }
func CMovle(dst, src Val) Instr { return Instr{Op: OpCMovle, A: dst, B: src} }
func CMovge(dst, src Val) Instr { return Instr{Op: OpCMovge, A: dst, B: src} }
func CMove(dst, src Val) Instr  { return Instr{Op: OpCMove, A: dst, B: src} }

// one-operand instruction constructors.
func LabelDef(name string) Instr { return Instr{Op: OpLabel, A: Label(name)} }
func Jmp(name string) Instr      { return Instr{Op: OpJmp, A: Label(name)} }
func Je(name string) Instr       { return Instr{Op: OpJe, A: Label(name)} }
func Jne(name string) Instr      { return Instr{Op: OpJne, A: Label(name)} }
func Jl(name string) Instr       { return Instr{Op: OpJl, A: Label(name)} }
func Jle(name string) Instr      { return Instr{Op: OpJle, A: Label(name)} }
func Jg(name string) Instr       { return Instr{Op: OpJg, A: Label(name)} }
func Jge(name string) Instr      { return Instr{Op: OpJge, A: Label(name)} }
func Jo(name string) Instr       { return Instr{Op: OpJo, A: Label(name)} }
func Push(v Val) Instr           { return Instr{Op: OpPush, A: v} }
func Pop(v Val) Instr            { return Instr{Op: OpPop, A: v} }
func Call(name string) Instr     { return Instr{Op: OpCall, A: Label(name)} }

// Ret is the zero-operand return instruction.
var Ret = Instr{Op: OpRet}

// Render converts one abstract instruction to its textual form, with
// no trailing newline.
func Render(i Instr) string {
	if i.Op == OpLabel {
		return i.A.render() + ":"
	}
	if i.Op == OpRet {
		return "ret"
	}
	mnem := mnemonics[i.Op]
	switch i.Op {
	case OpJmp, OpJe, OpJne, OpJl, OpJle, OpJg, OpJge, OpJo, OpPush, OpPop, OpCall:
		return fmt.Sprintf("%s %s", mnem, i.A.render())
	default:
		return fmt.Sprintf("%s %s, %s", mnem, i.A.render(), i.B.render())
	}
}

// RenderAll renders a sequence of instructions, one per line, with
// every line except label definitions indented to match the teacher's
// assembly output convention.
func RenderAll(instrs []Instr) string {
	out := ""
	for _, i := range instrs {
		if i.Op == OpLabel {
			out += Render(i) + "\n"
		} else {
			out += "        " + Render(i) + "\n"
		}
	}
	return out
}
