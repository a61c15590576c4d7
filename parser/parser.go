// Package parser converts the nested list tree the sexpr package
// produces into a validated ast.Program, rejecting malformed shapes,
// reserved-word misuse, duplicate bindings, unknown operators, and
// out-of-range integer literals.
//
// The structure follows the teacher's compiler: a small set of public
// entry points (Parse) with the bulk of the logic as unexported
// recursive-descent helpers, one per concrete syntax shape.
package parser

import (
	"github.com/pkg/errors"

	"github.com/skx/snekc/ast"
	"github.com/skx/snekc/sexpr"
)

// integer literal bounds: [-2^62, 2^62-1].
const (
	limit int64 = 1 << 62
)

// reserved is the set of words that may not be used as an identifier,
// binding name, or parameter name anywhere except their own defined
// syntactic role. "input" is reserved as an expression but, uniquely,
// may not be a bound name either — it is handled the same way here.
var reserved = map[string]bool{
	"add1": true, "sub1": true, "isnum": true, "isbool": true, "print": true,
	"+": true, "-": true, "*": true, "<": true, ">": true, "<=": true, ">=": true, "=": true,
	"let": true, "if": true, "set!": true, "block": true, "loop": true, "break": true,
	"true": true, "false": true, "input": true, "fun": true,
}

// Parse converts program source text into a validated Program.
func Parse(src string) (ast.Program, error) {
	root, err := sexpr.Read(src)
	if err != nil {
		return ast.Program{}, err
	}
	return parseProgram(root)
}

func parseProgram(root sexpr.Node) (ast.Program, error) {
	if root.Kind != sexpr.NodeList {
		return ast.Program{}, errors.New("Invalid: program must be a list of forms")
	}
	forms := root.Children
	if len(forms) == 0 {
		return ast.Program{}, errors.New("Invalid: empty program")
	}

	defnForms := forms[:len(forms)-1]
	mainForm := forms[len(forms)-1]

	// First pass: collect every function name (and its arity) before
	// parsing any body, so forward references and mutual recursion
	// between function definitions are legal.
	fnames := map[string]bool{}
	arities := map[string]int{}
	for _, f := range defnForms {
		name, arity, err := defnNameAndArity(f)
		if err != nil {
			return ast.Program{}, err
		}
		if !isValidIdentifier(name) {
			return ast.Program{}, errors.Errorf("Invalid function naming conventions: %q", name)
		}
		if reserved[name] {
			return ast.Program{}, errors.Errorf("Invalid function definition - keyword %q", name)
		}
		if fnames[name] {
			return ast.Program{}, errors.Errorf("Duplicate function name %q", name)
		}
		fnames[name] = true
		arities[name] = arity
	}

	defns := make([]ast.Function, 0, len(defnForms))
	for _, f := range defnForms {
		fn, err := parseDefn(f, fnames)
		if err != nil {
			return ast.Program{}, err
		}
		defns = append(defns, fn)
	}

	main, err := parseExpr(mainForm, fnames)
	if err != nil {
		return ast.Program{}, err
	}

	return ast.Program{Functions: defns, Main: main}, nil
}

// defnNameAndArity extracts the declared name and parameter count from
// a (fun (name param...) body) form without fully parsing it, so the
// name table can be built in a first pass.
func defnNameAndArity(s sexpr.Node) (string, int, error) {
	if s.Kind != sexpr.NodeList || len(s.Children) != 3 {
		return "", 0, errors.New("Invalid function definition shape")
	}
	if s.Children[0].Kind != sexpr.NodeSymbol || s.Children[0].Symbol != "fun" {
		return "", 0, errors.New("Invalid: expected 'fun'")
	}
	decl := s.Children[1]
	if decl.Kind != sexpr.NodeList || len(decl.Children) == 0 {
		return "", 0, errors.New("Invalid function declaration shape")
	}
	if decl.Children[0].Kind != sexpr.NodeSymbol {
		return "", 0, errors.New("Invalid function name")
	}
	return decl.Children[0].Symbol, len(decl.Children) - 1, nil
}

func parseDefn(s sexpr.Node, fmap map[string]bool) (ast.Function, error) {
	// Shape already validated by defnNameAndArity; re-destructure here
	// to keep this function self-contained and easy to read in
	// isolation, matching the teacher's one-shape-per-function style.
	decl := s.Children[1]
	bodyForm := s.Children[2]

	name := decl.Children[0].Symbol
	var params []string
	seen := map[string]bool{}
	for _, p := range decl.Children[1:] {
		if p.Kind != sexpr.NodeSymbol {
			return ast.Function{}, errors.New("Invalid parameter naming conventions")
		}
		if !isValidIdentifier(p.Symbol) {
			return ast.Function{}, errors.Errorf("Invalid parameter naming conventions: %q", p.Symbol)
		}
		if reserved[p.Symbol] {
			return ast.Function{}, errors.Errorf("Invalid function definition - keyword %q", p.Symbol)
		}
		if seen[p.Symbol] {
			return ast.Function{}, errors.Errorf("Duplicate parameter name %q", p.Symbol)
		}
		seen[p.Symbol] = true
		params = append(params, p.Symbol)
	}

	body, err := parseExpr(bodyForm, fmap)
	if err != nil {
		return ast.Function{}, err
	}
	return ast.Function{Name: name, Params: params, Body: body}, nil
}

// parseExpr parses a single s-expression node into an ast.Expr,
// disambiguating a list-headed-by-symbol form in the order keyword
// forms, then function call, then unary/binary operator by arity.
func parseExpr(s sexpr.Node, fmap map[string]bool) (ast.Expr, error) {
	switch s.Kind {
	case sexpr.NodeNumber:
		if s.Number > limit-1 || s.Number < -limit {
			return ast.Expr{}, errors.Errorf("Invalid integer literal out of range: %d", s.Number)
		}
		return ast.Expr{Kind: ast.ExprNumber, Number: s.Number}, nil

	case sexpr.NodeSymbol:
		switch s.Symbol {
		case "true":
			return ast.Expr{Kind: ast.ExprBoolean, Boolean: true}, nil
		case "false":
			return ast.Expr{Kind: ast.ExprBoolean, Boolean: false}, nil
		default:
			if !isValidIdentifier(s.Symbol) {
				return ast.Expr{}, errors.Errorf("Invalid identifier naming conventions: %q", s.Symbol)
			}
			if reserved[s.Symbol] && s.Symbol != "input" {
				return ast.Expr{}, errors.Errorf("Invalid identifier - keyword %q", s.Symbol)
			}
			return ast.Expr{Kind: ast.ExprId, Name: s.Symbol}, nil
		}

	case sexpr.NodeList:
		return parseList(s, fmap)

	default:
		return ast.Expr{}, errors.New("Invalid expression")
	}
}

func parseList(s sexpr.Node, fmap map[string]bool) (ast.Expr, error) {
	c := s.Children
	if len(c) == 0 {
		return ast.Expr{}, errors.New("Invalid: empty form")
	}

	head := c[0]
	if head.Kind == sexpr.NodeSymbol {
		switch head.Symbol {
		case "loop":
			if len(c) != 2 {
				return ast.Expr{}, errors.New("Invalid loop: expected one operand")
			}
			body, err := parseExpr(c[1], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprLoop, Body: &body}, nil

		case "break":
			if len(c) != 2 {
				return ast.Expr{}, errors.New("Invalid break: expected one operand")
			}
			body, err := parseExpr(c[1], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprBreak, Body: &body}, nil

		case "block":
			if len(c) < 2 {
				return ast.Expr{}, errors.New("Invalid block: expected at least one expression")
			}
			exprs, err := parseExprs(c[1:], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprBlock, Exprs: exprs}, nil

		case "tuple":
			exprs, err := parseExprs(c[1:], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprTuple, Exprs: exprs}, nil

		case "tget":
			if len(c) != 3 {
				return ast.Expr{}, errors.New("Invalid tget: expected tuple and index")
			}
			tup, idx, err := parseTwo(c[1], c[2], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprTGet, Tuple: &tup, Index: &idx}, nil

		case "tset!":
			if len(c) != 4 {
				return ast.Expr{}, errors.New("Invalid tset!: expected tuple, index, and value")
			}
			tup, err := parseExpr(c[1], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			idx, err := parseExpr(c[2], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			val, err := parseExpr(c[3], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprTSet, Tuple: &tup, Index: &idx, Value: &val}, nil

		case "let":
			if len(c) != 3 {
				return ast.Expr{}, errors.New("Invalid let: expected bindings and body")
			}
			bindingsForm := c[1]
			if bindingsForm.Kind != sexpr.NodeList || len(bindingsForm.Children) == 0 {
				return ast.Expr{}, errors.New("Invalid let: expected at least one binding")
			}
			var binds []ast.Binding
			seen := map[string]bool{}
			for _, b := range bindingsForm.Children {
				name, expr, err := parseBinding(b, fmap)
				if err != nil {
					return ast.Expr{}, err
				}
				if !isValidIdentifier(name) {
					return ast.Expr{}, errors.Errorf("Invalid identifier naming conventions: %q", name)
				}
				if seen[name] {
					return ast.Expr{}, errors.Errorf("Duplicate binding %q", name)
				}
				if reserved[name] {
					return ast.Expr{}, errors.Errorf("Invalid identifier - keyword %q", name)
				}
				seen[name] = true
				binds = append(binds, ast.Binding{Name: name, Expr: expr})
			}
			body, err := parseExpr(c[2], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprLet, Bindings: binds, Body: &body}, nil

		case "if":
			if len(c) != 4 {
				return ast.Expr{}, errors.New("Invalid if: expected exactly three sub-expressions")
			}
			cond, err := parseExpr(c[1], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			then, err := parseExpr(c[2], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			els, err := parseExpr(c[3], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprIf, Cond: &cond, Then: &then, Else: &els}, nil

		case "set!":
			if len(c) != 3 || c[1].Kind != sexpr.NodeSymbol {
				return ast.Expr{}, errors.New("Invalid set!: expected identifier and expression")
			}
			name := c[1].Symbol
			if !isValidIdentifier(name) {
				return ast.Expr{}, errors.Errorf("Invalid identifier naming conventions: %q", name)
			}
			if reserved[name] {
				return ast.Expr{}, errors.Errorf("Invalid identifier - keyword %q", name)
			}
			body, err := parseExpr(c[2], fmap)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprSet, Name: name, Body: &body}, nil

		case "fun":
			return ast.Expr{}, errors.New("Invalid: 'fun' is only legal at the top level")

		default:
			if fmap[head.Symbol] {
				args, err := parseExprs(c[1:], fmap)
				if err != nil {
					return ast.Expr{}, err
				}
				return ast.Expr{Kind: ast.ExprCall, CallName: head.Symbol, Args: args}, nil
			}
			return parseOperator(head.Symbol, c[1:], fmap)
		}
	}

	return ast.Expr{}, errors.New("Invalid expression")
}

// parseOperator handles unary and binary operators by arity, once the
// head symbol has been ruled out as a keyword or a declared function.
func parseOperator(op string, operands []sexpr.Node, fmap map[string]bool) (ast.Expr, error) {
	switch op {
	case "add1", "sub1", "isnum", "isbool", "print":
		if len(operands) != 1 {
			return ast.Expr{}, errors.Errorf("Invalid %s: expected exactly one operand", op)
		}
		body, err := parseExpr(operands[0], fmap)
		if err != nil {
			return ast.Expr{}, err
		}
		var uop ast.UnOp
		switch op {
		case "add1":
			uop = ast.Add1
		case "sub1":
			uop = ast.Sub1
		case "isnum":
			uop = ast.IsNum
		case "isbool":
			uop = ast.IsBool
		case "print":
			uop = ast.Print
		}
		return ast.Expr{Kind: ast.ExprUnOp, UnaryOp: uop, Body: &body}, nil

	case "+", "-", "*", "<", ">", "<=", ">=", "=":
		if len(operands) != 2 {
			return ast.Expr{}, errors.Errorf("Invalid %s: expected exactly two operands", op)
		}
		lhs, rhs, err := parseTwo(operands[0], operands[1], fmap)
		if err != nil {
			return ast.Expr{}, err
		}
		var bop ast.BinOp
		switch op {
		case "+":
			bop = ast.Plus
		case "-":
			bop = ast.Minus
		case "*":
			bop = ast.Times
		case "<":
			bop = ast.Lt
		case ">":
			bop = ast.Gt
		case "<=":
			bop = ast.Lte
		case ">=":
			bop = ast.Gte
		case "=":
			bop = ast.Equal
		}
		return ast.Expr{Kind: ast.ExprBinOp, BinaryOp: bop, Lhs: &lhs, Rhs: &rhs}, nil

	default:
		return ast.Expr{}, errors.Errorf("Invalid: unknown operator or undeclared function %q", op)
	}
}

func parseTwo(a, b sexpr.Node, fmap map[string]bool) (ast.Expr, ast.Expr, error) {
	e1, err := parseExpr(a, fmap)
	if err != nil {
		return ast.Expr{}, ast.Expr{}, err
	}
	e2, err := parseExpr(b, fmap)
	if err != nil {
		return ast.Expr{}, ast.Expr{}, err
	}
	return e1, e2, nil
}

func parseExprs(nodes []sexpr.Node, fmap map[string]bool) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := parseExpr(n, fmap)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func parseBinding(s sexpr.Node, fmap map[string]bool) (string, ast.Expr, error) {
	if s.Kind != sexpr.NodeList || len(s.Children) != 2 || s.Children[0].Kind != sexpr.NodeSymbol {
		return "", ast.Expr{}, errors.New("Invalid let binding shape")
	}
	expr, err := parseExpr(s.Children[1], fmap)
	if err != nil {
		return "", ast.Expr{}, err
	}
	return s.Children[0].Symbol, expr, nil
}

// isValidIdentifier reports whether s matches [A-Za-z][A-Za-z0-9]*.
func isValidIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}
	first := s[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !alnum {
			return false
		}
	}
	return true
}
