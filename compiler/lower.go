package compiler

import (
	"github.com/pkg/errors"

	"github.com/skx/snekc/asmil"
	"github.com/skx/snekc/ast"
)

// runtime value encoding: an integer n is tagged n<<1 (low bit 0); the
// booleans are the fixed words 7 (true) and 3 (false, low two bits
// 11); a tuple is a heap pointer with its low two bits set to 01.
const (
	trueVal  = 7
	falseVal = 3
)

// slot addresses the stack-index-numbered local at si, counting in
// 8-byte words below rsp.
func slot(si int32) asmil.Val {
	return asmil.MemPtr(asmil.RSP, -8*si)
}

// alignedPad returns the word count to reserve with "sub rsp" before
// a call instruction: it must be at least si (to keep every live
// local below the new rsp, out of the call's return-address push)
// and odd (our_code_starts_here and every function are themselves
// entered via a call, so rsp%16==8 on entry; reserving an odd word
// count brings rsp back to a 16-byte boundary at the point the nested
// call instruction executes).
func alignedPad(si int32) int32 {
	if si%2 == 1 {
		return si
	}
	return si + 1
}

func (c *Compiler) lowerExpr(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	switch e.Kind {
	case ast.ExprNumber:
		return []asmil.Instr{asmil.Mov(asmil.Register(asmil.RAX), asmil.Imm(e.Number*2))}, nil

	case ast.ExprBoolean:
		v := int64(falseVal)
		if e.Boolean {
			v = trueVal
		}
		return []asmil.Instr{asmil.Mov(asmil.Register(asmil.RAX), asmil.Imm(v))}, nil

	case ast.ExprId:
		return c.lowerID(e, ctx)

	case ast.ExprLet:
		return c.lowerLet(e, ctx)

	case ast.ExprUnOp:
		return c.lowerUnOp(e, ctx)

	case ast.ExprBinOp:
		return c.lowerBinOp(e, ctx)

	case ast.ExprIf:
		return c.lowerIf(e, ctx)

	case ast.ExprLoop:
		return c.lowerLoop(e, ctx)

	case ast.ExprBreak:
		return c.lowerBreak(e, ctx)

	case ast.ExprSet:
		return c.lowerSet(e, ctx)

	case ast.ExprBlock:
		return c.lowerBlock(e, ctx)

	case ast.ExprCall:
		return c.lowerCall(e, ctx)

	case ast.ExprTuple:
		return c.lowerTuple(e, ctx)

	case ast.ExprTGet:
		return c.lowerTGet(e, ctx)

	case ast.ExprTSet:
		return c.lowerTSet(e, ctx)

	default:
		return nil, errors.Errorf("internal error: unhandled expression kind %d", e.Kind)
	}
}

func (c *Compiler) lowerID(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	l, ok := ctx.env[e.Name]
	if !ok {
		return nil, errors.Errorf("Unbound variable identifier %s", e.Name)
	}
	return []asmil.Instr{asmil.Mov(asmil.Register(asmil.RAX), asmil.MemPtr(asmil.RSP, int32(l)))}, nil
}

func (c *Compiler) lowerLet(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	var instrs []asmil.Instr

	seen := make(map[string]bool, len(e.Bindings))
	cur := ctx
	for _, b := range e.Bindings {
		if seen[b.Name] {
			return nil, errors.Errorf("Duplicate binding in let: %s", b.Name)
		}
		seen[b.Name] = true

		rhs, err := c.lowerExpr(&b.Expr, cur)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, rhs...)
		instrs = append(instrs, asmil.Mov(slot(cur.si), asmil.Register(asmil.RAX)))
		cur = cur.withEnv(cur.env.extend(b.Name, loc(-8*cur.si))).withSI(cur.si + 1)
	}

	body, err := c.lowerExpr(e.Body, cur)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, body...)
	return instrs, nil
}

func (c *Compiler) lowerUnOp(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	operand, err := c.lowerExpr(e.Body, ctx)
	if err != nil {
		return nil, err
	}

	switch e.UnaryOp {
	case ast.Add1, ast.Sub1:
		instrs := append([]asmil.Instr{}, operand...)
		instrs = append(instrs, checkTagMismatch(asmil.Register(asmil.RAX))...)
		if e.UnaryOp == ast.Add1 {
			instrs = append(instrs, asmil.Add(asmil.Register(asmil.RAX), asmil.Imm(2)))
		} else {
			instrs = append(instrs, asmil.Sub(asmil.Register(asmil.RAX), asmil.Imm(2)))
		}
		instrs = append(instrs, checkOverflow()...)
		return instrs, nil

	case ast.IsNum, ast.IsBool:
		instrs := append([]asmil.Instr{}, operand...)
		instrs = append(instrs, asmil.Mov(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)))
		if e.UnaryOp == ast.IsNum {
			instrs = append(instrs,
				asmil.And(asmil.Register(asmil.RCX), asmil.Imm(1)),
				asmil.Cmp(asmil.Register(asmil.RCX), asmil.Imm(0)),
			)
		} else {
			instrs = append(instrs,
				asmil.And(asmil.Register(asmil.RCX), asmil.Imm(3)),
				asmil.Cmp(asmil.Register(asmil.RCX), asmil.Imm(3)),
			)
		}
		instrs = append(instrs,
			asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(trueVal)),
			asmil.Mov(asmil.Register(asmil.RAX), asmil.Imm(falseVal)),
			asmil.CMove(asmil.Register(asmil.RAX), asmil.Register(asmil.RBX)),
		)
		return instrs, nil

	case ast.Print:
		instrs := append([]asmil.Instr{}, operand...)
		saveSlot := slot(ctx.si)
		w := alignedPad(ctx.si + 1)
		instrs = append(instrs,
			asmil.Mov(saveSlot, asmil.Register(asmil.RAX)),
			asmil.Sub(asmil.Register(asmil.RSP), asmil.Imm(8*int64(w))),
			asmil.Mov(asmil.Register(asmil.RDI), asmil.Register(asmil.RAX)),
			asmil.Call("snek_print"),
			asmil.Add(asmil.Register(asmil.RSP), asmil.Imm(8*int64(w))),
			asmil.Mov(asmil.Register(asmil.RAX), saveSlot),
		)
		return instrs, nil

	default:
		return nil, errors.Errorf("internal error: unhandled unary operator %d", e.UnaryOp)
	}
}

// lowerBinOp evaluates Lhs into a fresh local, then Rhs into rax, so
// both values are available without either clobbering the other.
func (c *Compiler) lowerBinOp(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	lhs, err := c.lowerExpr(e.Lhs, ctx)
	if err != nil {
		return nil, err
	}
	rhs, err := c.lowerExpr(e.Rhs, ctx.withSI(ctx.si+1))
	if err != nil {
		return nil, err
	}

	lhsSlot := slot(ctx.si)
	var instrs []asmil.Instr
	instrs = append(instrs, lhs...)
	instrs = append(instrs, asmil.Mov(lhsSlot, asmil.Register(asmil.RAX)))
	instrs = append(instrs, rhs...)

	switch e.BinaryOp {
	case ast.Plus, ast.Minus, ast.Times:
		instrs = append(instrs, checkTagMismatch(asmil.Register(asmil.RAX))...)
		instrs = append(instrs, checkTagMismatch(lhsSlot)...)
		instrs = append(instrs,
			asmil.Mov(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)),
			asmil.Mov(asmil.Register(asmil.RAX), lhsSlot),
		)
		switch e.BinaryOp {
		case ast.Plus:
			instrs = append(instrs, asmil.Add(asmil.Register(asmil.RAX), asmil.Register(asmil.RCX)))
		case ast.Minus:
			instrs = append(instrs, asmil.Sub(asmil.Register(asmil.RAX), asmil.Register(asmil.RCX)))
		case ast.Times:
			instrs = append(instrs,
				asmil.Sar(asmil.Register(asmil.RAX), asmil.Imm(1)),
				asmil.IMul(asmil.Register(asmil.RAX), asmil.Register(asmil.RCX)),
			)
		}
		instrs = append(instrs, checkOverflow()...)
		return instrs, nil

	case ast.Lt, ast.Gt, ast.Lte, ast.Gte:
		instrs = append(instrs, checkTagMismatch(asmil.Register(asmil.RAX))...)
		instrs = append(instrs, checkTagMismatch(lhsSlot)...)
		instrs = append(instrs,
			asmil.Mov(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)),
			asmil.Mov(asmil.Register(asmil.RAX), lhsSlot),
			asmil.Cmp(asmil.Register(asmil.RAX), asmil.Register(asmil.RCX)),
			asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(trueVal)),
			asmil.Mov(asmil.Register(asmil.RAX), asmil.Imm(falseVal)),
		)
		switch e.BinaryOp {
		case ast.Lt:
			instrs = append(instrs, asmil.CMovl(asmil.Register(asmil.RAX), asmil.Register(asmil.RBX)))
		case ast.Gt:
			instrs = append(instrs, asmil.CMovg(asmil.Register(asmil.RAX), asmil.Register(asmil.RBX)))
		case ast.Lte:
			instrs = append(instrs, asmil.CMovle(asmil.Register(asmil.RAX), asmil.Register(asmil.RBX)))
		case ast.Gte:
			instrs = append(instrs, asmil.CMovge(asmil.Register(asmil.RAX), asmil.Register(asmil.RBX)))
		}
		return instrs, nil

	case ast.Equal:
		instrs = append(instrs, asmil.Mov(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)))
		instrs = append(instrs, asmil.Xor(asmil.Register(asmil.RCX), lhsSlot))
		instrs = append(instrs, checkTagMismatch(asmil.Register(asmil.RCX))...)
		instrs = append(instrs,
			asmil.Mov(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)),
			asmil.Mov(asmil.Register(asmil.RAX), lhsSlot),
			asmil.Cmp(asmil.Register(asmil.RAX), asmil.Register(asmil.RCX)),
			asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(trueVal)),
			asmil.Mov(asmil.Register(asmil.RAX), asmil.Imm(falseVal)),
			asmil.CMove(asmil.Register(asmil.RAX), asmil.Register(asmil.RBX)),
		)
		return instrs, nil

	default:
		return nil, errors.Errorf("internal error: unhandled binary operator %d", e.BinaryOp)
	}
}

func (c *Compiler) lowerIf(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	cond, err := c.lowerExpr(e.Cond, ctx)
	if err != nil {
		return nil, err
	}
	then, err := c.lowerExpr(e.Then, ctx)
	if err != nil {
		return nil, err
	}
	els, err := c.lowerExpr(e.Else, ctx)
	if err != nil {
		return nil, err
	}

	n := c.newLabel()
	elseLabel := labelName("else", n)
	endLabel := labelName("endif", n)

	var instrs []asmil.Instr
	instrs = append(instrs, cond...)
	instrs = append(instrs,
		asmil.Cmp(asmil.Register(asmil.RAX), asmil.Imm(falseVal)),
		asmil.Je(elseLabel),
	)
	instrs = append(instrs, then...)
	instrs = append(instrs,
		asmil.Jmp(endLabel),
		asmil.LabelDef(elseLabel),
	)
	instrs = append(instrs, els...)
	instrs = append(instrs, asmil.LabelDef(endLabel))
	return instrs, nil
}

func (c *Compiler) lowerLoop(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	n := c.newLabel()
	startLabel := labelName("loop_start", n)
	endLabel := labelName("loop_end", n)

	body, err := c.lowerExpr(e.Body, ctx.withLoop(n))
	if err != nil {
		return nil, err
	}

	var instrs []asmil.Instr
	instrs = append(instrs, asmil.LabelDef(startLabel))
	instrs = append(instrs, body...)
	instrs = append(instrs, asmil.Jmp(startLabel))
	instrs = append(instrs, asmil.LabelDef(endLabel))
	return instrs, nil
}

func (c *Compiler) lowerBreak(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	if ctx.loopLabel == 0 {
		return nil, errors.New("break used outside of a loop")
	}
	operand, err := c.lowerExpr(e.Body, ctx)
	if err != nil {
		return nil, err
	}
	instrs := append([]asmil.Instr{}, operand...)
	instrs = append(instrs, asmil.Jmp(labelName("loop_end", ctx.loopLabel)))
	return instrs, nil
}

func (c *Compiler) lowerSet(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	l, ok := ctx.env[e.Name]
	if !ok {
		return nil, errors.Errorf("Unbound variable identifier %s", e.Name)
	}
	rhs, err := c.lowerExpr(e.Body, ctx)
	if err != nil {
		return nil, err
	}
	instrs := append([]asmil.Instr{}, rhs...)
	instrs = append(instrs, asmil.Mov(asmil.MemPtr(asmil.RSP, int32(l)), asmil.Register(asmil.RAX)))
	return instrs, nil
}

func (c *Compiler) lowerBlock(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	if len(e.Exprs) == 0 {
		return nil, errors.New("block must contain at least one expression")
	}
	var instrs []asmil.Instr
	for i := range e.Exprs {
		sub, err := c.lowerExpr(&e.Exprs[i], ctx)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, sub...)
	}
	return instrs, nil
}

func (c *Compiler) lowerCall(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	arity, ok := ctx.funcMap[e.CallName]
	if !ok {
		return nil, errors.Errorf("Undefined function: %s", e.CallName)
	}
	if arity != len(e.Args) {
		return nil, errors.Errorf("Invalid number of arguments for function %s: expected %d, got %d",
			e.CallName, arity, len(e.Args))
	}

	n := int32(len(e.Args))
	w := alignedPad(ctx.si + n)
	// Argument sub-expressions never need slots below w+1: every
	// destination slot an argument is written to lives in [w-n+1, w],
	// so starting nested temporaries above that range keeps the two
	// from ever aliasing, regardless of how many args there are.
	innerCtx := ctx.withSI(w + 1)

	var instrs []asmil.Instr
	for i := range e.Args {
		argInstrs, err := c.lowerExpr(&e.Args[i], innerCtx)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, argInstrs...)
		// Write directly to the byte offset that becomes [rsp+8*i]
		// relative to rsp once it is subtracted by 8*w below — no
		// intermediate copy, so there is nothing to overlap.
		instrs = append(instrs, asmil.Mov(slot(w-int32(i)), asmil.Register(asmil.RAX)))
	}

	instrs = append(instrs,
		asmil.Sub(asmil.Register(asmil.RSP), asmil.Imm(8*int64(w))),
		asmil.Call(e.CallName),
		asmil.Add(asmil.Register(asmil.RSP), asmil.Imm(8*int64(w))),
	)
	return instrs, nil
}

// lowerTuple reserves the heap space a tuple needs before lowering
// its elements, so a nested tuple allocated while evaluating one
// element cannot grow into space this tuple has already claimed.
func (c *Compiler) lowerTuple(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	baseSlot := slot(ctx.si)
	n := int32(len(e.Exprs))

	var instrs []asmil.Instr
	instrs = append(instrs,
		asmil.Mov(baseSlot, asmil.Register(asmil.R15)),
		asmil.Add(asmil.Register(asmil.R15), asmil.Imm(8*int64(n+1))),
	)

	elemCtx := ctx.withSI(ctx.si + 1)
	for i := range e.Exprs {
		elem, err := c.lowerExpr(&e.Exprs[i], elemCtx)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, elem...)
		instrs = append(instrs,
			asmil.Mov(asmil.Register(asmil.RCX), baseSlot),
			asmil.Mov(asmil.MemPtr(asmil.RCX, 8*(int32(i)+1)), asmil.Register(asmil.RAX)),
		)
	}

	instrs = append(instrs,
		asmil.Mov(asmil.Register(asmil.RCX), baseSlot),
		asmil.Mov(asmil.MemPtr(asmil.RCX, 0), asmil.Imm(int64(n)*2)),
		asmil.Mov(asmil.Register(asmil.RAX), baseSlot),
		asmil.Add(asmil.Register(asmil.RAX), asmil.Imm(1)),
	)
	return instrs, nil
}

func (c *Compiler) lowerTGet(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	tupleSlot := slot(ctx.si)
	inner := ctx.withSI(ctx.si + 2)

	tuple, err := c.lowerExpr(e.Tuple, inner)
	if err != nil {
		return nil, err
	}
	index, err := c.lowerExpr(e.Index, inner)
	if err != nil {
		return nil, err
	}

	var instrs []asmil.Instr
	instrs = append(instrs, tuple...)
	instrs = append(instrs, asmil.Mov(tupleSlot, asmil.Register(asmil.RAX)))
	instrs = append(instrs, index...)
	instrs = append(instrs, checkTagMismatch(asmil.Register(asmil.RAX))...)
	instrs = append(instrs, checkTupleTag(tupleSlot, asmil.RCX)...)

	instrs = append(instrs,
		asmil.Sar(asmil.Register(asmil.RAX), asmil.Imm(1)),
		asmil.Mov(asmil.Register(asmil.RCX), tupleSlot),
		asmil.Sub(asmil.Register(asmil.RCX), asmil.Imm(1)),
		asmil.Mov(asmil.Register(asmil.RDI), asmil.MemPtr(asmil.RCX, 0)),
		asmil.Sar(asmil.Register(asmil.RDI), asmil.Imm(1)),
		asmil.Cmp(asmil.Register(asmil.RAX), asmil.Imm(0)),
		asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(errBounds)),
		asmil.Jl(trampolineLabel),
	)
	instrs = append(instrs, checkBounds(asmil.RAX, asmil.Register(asmil.RDI))...)
	instrs = append(instrs,
		asmil.IMul(asmil.Register(asmil.RAX), asmil.Imm(8)),
		asmil.Add(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)),
		asmil.Mov(asmil.Register(asmil.RAX), asmil.MemPtr(asmil.RCX, 8)),
	)
	return instrs, nil
}

func (c *Compiler) lowerTSet(e *ast.Expr, ctx context) ([]asmil.Instr, error) {
	tupleSlot := slot(ctx.si)
	indexSlot := slot(ctx.si + 1)
	valueSlot := slot(ctx.si + 2)
	inner := ctx.withSI(ctx.si + 3)

	tuple, err := c.lowerExpr(e.Tuple, inner)
	if err != nil {
		return nil, err
	}
	index, err := c.lowerExpr(e.Index, inner)
	if err != nil {
		return nil, err
	}
	value, err := c.lowerExpr(e.Value, inner)
	if err != nil {
		return nil, err
	}

	var instrs []asmil.Instr
	instrs = append(instrs, tuple...)
	instrs = append(instrs, asmil.Mov(tupleSlot, asmil.Register(asmil.RAX)))
	instrs = append(instrs, index...)
	instrs = append(instrs, asmil.Mov(indexSlot, asmil.Register(asmil.RAX)))
	instrs = append(instrs, value...)
	instrs = append(instrs, asmil.Mov(valueSlot, asmil.Register(asmil.RAX)))

	instrs = append(instrs, checkTagMismatch(indexSlot)...)
	instrs = append(instrs, checkTupleTag(tupleSlot, asmil.RCX)...)

	instrs = append(instrs,
		asmil.Mov(asmil.Register(asmil.RAX), indexSlot),
		asmil.Sar(asmil.Register(asmil.RAX), asmil.Imm(1)),
		asmil.Mov(asmil.Register(asmil.RCX), tupleSlot),
		asmil.Sub(asmil.Register(asmil.RCX), asmil.Imm(1)),
		asmil.Mov(asmil.Register(asmil.RDI), asmil.MemPtr(asmil.RCX, 0)),
		asmil.Sar(asmil.Register(asmil.RDI), asmil.Imm(1)),
		asmil.Cmp(asmil.Register(asmil.RAX), asmil.Imm(0)),
		asmil.Mov(asmil.Register(asmil.RBX), asmil.Imm(errBounds)),
		asmil.Jl(trampolineLabel),
	)
	instrs = append(instrs, checkBounds(asmil.RAX, asmil.Register(asmil.RDI))...)
	instrs = append(instrs,
		asmil.IMul(asmil.Register(asmil.RAX), asmil.Imm(8)),
		asmil.Add(asmil.Register(asmil.RCX), asmil.Register(asmil.RAX)),
		asmil.Mov(asmil.Register(asmil.RAX), valueSlot),
		asmil.Mov(asmil.MemPtr(asmil.RCX, 8), asmil.Register(asmil.RAX)),
		asmil.Mov(asmil.Register(asmil.RAX), tupleSlot),
	)
	return instrs, nil
}

func labelName(prefix string, n int) string {
	return prefix + "_" + itoa(n)
}

// itoa avoids pulling in strconv for a single call site; n is always
// a small non-negative label counter.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
