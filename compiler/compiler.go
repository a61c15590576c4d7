// Package compiler lowers a validated ast.Program into x86-64
// assembly text. It threads a compile-time context (stack index,
// lexical environment, current loop label, function arity table, an
// in-function flag) through every expression, in the same shape the
// original source's ExprContext does, and renders the result through
// asmil.
//
// The three-step shape — tokenize/parse upstream, lower to an
// intermediate instruction list, then render — follows the teacher's
// Compiler.Compile: a small public surface (New, SetDebug, Compile)
// backed by one unexported lowering function per expression shape.
package compiler

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skx/snekc/asmil"
	"github.com/skx/snekc/ast"
	"github.com/skx/snekc/trace"
)

// Compiler holds the lowering's object-state: a monotonic label
// counter, the debug flag, and a trace of the top-level definition
// currently being lowered (a function or the main expression, used to
// annotate returned errors when debugging is on).
type Compiler struct {
	debug bool
	lbl   int
	trace *trace.Stack
	log   *logrus.Logger
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// New creates a Compiler. log may be nil, in which case a
// discard-everything logger is used.
func New(log *logrus.Logger) *Compiler {
	if log == nil {
		log = logrus.New()
		log.SetOutput(discardWriter{})
	}
	return &Compiler{lbl: 1, trace: trace.New(), log: log}
}

// SetDebug toggles whether debug scaffolding (an int3 breakpoint in
// the emitted prologue, plus trace-annotated errors) is produced.
func (c *Compiler) SetDebug(v bool) { c.debug = v }

func (c *Compiler) newLabel() int {
	n := c.lbl
	c.lbl++
	return n
}

// Compile lowers an entire program to a complete assembly-language
// text file, including the fixed prologue/epilogue template and the
// shared error trampoline.
func (c *Compiler) Compile(prog ast.Program) (string, error) {
	funcMap := make(map[string]int, len(prog.Functions))
	for _, fn := range prog.Functions {
		funcMap[fn.Name] = len(fn.Params)
	}

	var defnInstrs []asmil.Instr
	for _, fn := range prog.Functions {
		c.log.WithFields(logrus.Fields{"phase": "lower", "function": fn.Name}).Debug("lowering function")
		c.trace.Push("function " + fn.Name)
		instrs, err := c.lowerFunc(fn, funcMap)
		if err != nil {
			err = c.annotate(err)
			c.trace.Pop()
			return "", errors.Wrapf(err, "compiling function %q", fn.Name)
		}
		if _, popErr := c.trace.Pop(); popErr != nil {
			return "", popErr
		}
		defnInstrs = append(defnInstrs, instrs...)
	}

	// "input" names the single value passed to our_code_starts_here in
	// rdi. rdi is not preserved across calls, so it is spilled to the
	// first stack slot before lowering the main body, and bound in the
	// environment like any other local.
	inputSlot := asmil.MemPtr(asmil.RSP, -8)
	prologue := []asmil.Instr{asmil.Mov(inputSlot, asmil.Register(asmil.RDI))}

	mainCtx := context{si: 2, env: env{"input": -8}, loopLabel: 0, funcMap: funcMap, inFunc: false}
	c.log.WithField("phase", "lower").Debug("lowering main expression")
	c.trace.Push("main expression")
	mainBody, err := c.lowerExpr(&prog.Main, mainCtx)
	if err != nil {
		err = c.annotate(err)
		c.trace.Pop()
		return "", errors.Wrap(err, "compiling main expression")
	}
	if _, popErr := c.trace.Pop(); popErr != nil {
		return "", popErr
	}

	mainInstrs := append(prologue, mainBody...)
	return c.emit(defnInstrs, mainInstrs), nil
}

// emit wraps the lowered function bodies and main body in the fixed
// assembly template: external symbol declarations, the shared error
// trampoline, then every function body followed by the entry point.
func (c *Compiler) emit(defns, main []asmil.Instr) string {
	header := `.intel_syntax noprefix
.global our_code_starts_here
.extern snek_error
.extern snek_print

.text
throw_error_align:
        sub rsp, 8
        mov rdi, rbx
        call snek_error
        add rsp, 8

`
	body := asmil.RenderAll(defns)

	entry := "our_code_starts_here:\n"
	entry += "        mov r15, rsi\n"
	if c.debug {
		entry += "        int3\n"
	}
	entry += asmil.RenderAll(main)
	entry += "        ret\n"

	return header + body + entry
}

// lowerFunc compiles one function definition into a labeled
// instruction block: parameters are addressed at positive stack
// offsets matching the caller's in-memory argument layout.
func (c *Compiler) lowerFunc(fn ast.Function, funcMap map[string]int) ([]asmil.Instr, error) {
	vars := env{}
	for i, p := range fn.Params {
		vars[p] = loc((i + 1) * 8)
	}

	ctx := context{si: 1, env: vars, loopLabel: 0, funcMap: funcMap, inFunc: true}
	body, err := c.lowerExpr(&fn.Body, ctx)
	if err != nil {
		return nil, err
	}

	instrs := []asmil.Instr{asmil.LabelDef(fn.Name)}
	instrs = append(instrs, body...)
	instrs = append(instrs, asmil.Ret)
	return instrs, nil
}

// annotate wraps err with the current trace path when debugging is
// enabled, giving the error a breadcrumb of which top-level
// definition was being lowered.
func (c *Compiler) annotate(err error) error {
	if c.debug && !c.trace.Empty() {
		return errors.WithMessagef(err, "while compiling: %s", c.trace.Path())
	}
	return err
}
