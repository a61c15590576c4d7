// Package ast holds the validated abstract expression tree the parser
// produces and the compiler consumes. None of these types are mutated
// after construction; the parser builds a complete tree for each
// function body and the main expression before compilation begins.
package ast

// UnOp identifies a unary operator.
type UnOp int

// the unary operators the source language supports.
const (
	Add1 UnOp = iota
	Sub1
	IsNum
	IsBool
	Print
)

// BinOp identifies a binary operator.
type BinOp int

// the binary operators the source language supports.
const (
	Plus BinOp = iota
	Minus
	Times
	Lt
	Gt
	Lte
	Gte
	Equal
)

// Binding is one (name, expr) pair of a let form.
type Binding struct {
	Name string
	Expr Expr
}

// Expr is the sum type of every expression variant in the source
// language. Exactly one of the typed fields is meaningful for any
// given Kind; this mirrors the tagged-enum shape of the original
// Rust Expr type while staying idiomatic-Go (a struct with a
// discriminant rather than an interface hierarchy, since every
// variant is consumed exhaustively by both the parser and the
// compiler via a switch on Kind).
type Expr struct {
	Kind ExprKind

	Number  int64  // Kind == ExprNumber
	Boolean bool   // Kind == ExprBoolean
	Name    string // Kind == ExprId, ExprSet

	Bindings []Binding // Kind == ExprLet
	Body     *Expr     // Kind == ExprLet (body), ExprLoop, ExprBreak, ExprSet, ExprUnOp (operand)

	UnaryOp  UnOp  // Kind == ExprUnOp
	BinaryOp BinOp // Kind == ExprBinOp
	Lhs      *Expr // Kind == ExprBinOp
	Rhs      *Expr // Kind == ExprBinOp

	Cond *Expr // Kind == ExprIf
	Then *Expr // Kind == ExprIf
	Else *Expr // Kind == ExprIf

	Exprs []Expr // Kind == ExprBlock, ExprTuple

	CallName string // Kind == ExprCall
	Args     []Expr // Kind == ExprCall

	Tuple *Expr // Kind == ExprTGet, ExprTSet
	Index *Expr // Kind == ExprTGet, ExprTSet
	Value *Expr // Kind == ExprTSet
}

// ExprKind discriminates the Expr sum type.
type ExprKind int

// every expression variant the source language has.
const (
	ExprNumber ExprKind = iota
	ExprBoolean
	ExprId
	ExprLet
	ExprUnOp
	ExprBinOp
	ExprIf
	ExprLoop
	ExprBreak
	ExprSet
	ExprBlock
	ExprCall
	ExprTuple
	ExprTGet
	ExprTSet
)

// Function is a single top-level definition: a name, its ordered
// parameters, and its body expression.
type Function struct {
	Name   string
	Params []string
	Body   Expr
}

// Program is an ordered list of function definitions plus exactly one
// main expression.
type Program struct {
	Functions []Function
	Main      Expr
}
