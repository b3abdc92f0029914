package ast

import (
	"fmt"

	"github.com/mna/zephyr/lang/token"
)

func (*ExprStmt) stmt()     {}
func (*VarDecl) stmt()      {}
func (*ConstDecl) stmt()    {}
func (*FunctionDecl) stmt() {}
func (*ClassDecl) stmt()    {}
func (*IfStmt) stmt()       {}
func (*WhileStmt) stmt()    {}
func (*ForStmt) stmt()      {}
func (*BreakStmt) stmt()    {}
func (*ContinueStmt) stmt() {}
func (*ReturnStmt) stmt()   {}

func (*VarDecl) decl()      {}
func (*ConstDecl) decl()    {}
func (*FunctionDecl) decl() {}
func (*ClassDecl) decl()    {}

// ExprStmt is an expression evaluated for effect; the compiler pops its
// result off the stack after compiling it.
type ExprStmt struct {
	X Expr
}

func (n *ExprStmt) Span() (start, end token.Pos) { return n.X.Span() }
func (n *ExprStmt) String() string               { return n.X.String() }

// VarDecl is a `let name = value` (or `let name` with an implicit null
// value) declaration.
type VarDecl struct {
	Name  token.Token
	Value Expr // nil means implicit null
}

func (n *VarDecl) Span() (start, end token.Pos) {
	end = n.Name.Pos
	if n.Value != nil {
		_, end = n.Value.Span()
	}
	return n.Name.Pos, end
}
func (n *VarDecl) String() string { return fmt.Sprintf("let %s", n.Name.Lexeme) }

// ConstDecl is a `const name = value` declaration; value is required.
type ConstDecl struct {
	Name  token.Token
	Value Expr
}

func (n *ConstDecl) Span() (start, end token.Pos) {
	_, end = n.Value.Span()
	return n.Name.Pos, end
}
func (n *ConstDecl) String() string { return fmt.Sprintf("const %s", n.Name.Lexeme) }

// Parameter is a single formal parameter of a function. Default is nil for
// required parameters. Optional is true for a parameter declared
// optional without a default expression (bound to null unless passed).
type Parameter struct {
	Name     token.Token
	Default  Expr
	Optional bool
}

// FunctionDecl is a `fn name(params) { body }` declaration.
type FunctionDecl struct {
	FnPos  token.Pos
	Name   token.Token
	Params []*Parameter
	Body   *Block
}

// Arity returns (min_arity, max_arity): the number of required parameters
// and the total number of parameters (required plus optional/defaulted).
func (n *FunctionDecl) Arity() (min, max int) {
	max = len(n.Params)
	min = max
	for _, p := range n.Params {
		if p.Default != nil || p.Optional {
			min--
		}
	}
	return min, max
}

func (n *FunctionDecl) Span() (start, end token.Pos) { return n.FnPos, n.Body.End }
func (n *FunctionDecl) String() string               { return fmt.Sprintf("fn %s", n.Name.Lexeme) }

// ClassDecl is a `class Name { methods... }` declaration.
type ClassDecl struct {
	ClassPos token.Pos
	Name     token.Token
	Methods  []*FunctionDecl
	EndPos   token.Pos
}

func (n *ClassDecl) Span() (start, end token.Pos) { return n.ClassPos, n.EndPos }
func (n *ClassDecl) String() string               { return fmt.Sprintf("class %s", n.Name.Lexeme) }

// IfStmt is an `if`/`else` statement. Else is nil, a *Block, or a nested
// *IfStmt for an `else if` chain.
type IfStmt struct {
	IfPos token.Pos
	Cond  Expr
	Then  *Block
	Else  Stmt
}

func (n *IfStmt) Span() (start, end token.Pos) {
	_, end = n.Then.Span()
	if n.Else != nil {
		_, end = n.Else.Span()
	}
	return n.IfPos, end
}
func (n *IfStmt) String() string { return "if" }

// WhileStmt is a `while cond { body }` loop.
type WhileStmt struct {
	WhilePos token.Pos
	Cond     Expr
	Body     *Block
}

func (n *WhileStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.WhilePos, end
}
func (n *WhileStmt) String() string { return "while" }

// ForStmt is a `for name in iterable { body }` loop over an iterable
// expression, desugared by the compiler to a HasNext/Next protocol.
type ForStmt struct {
	ForPos   token.Pos
	Var      token.Token
	Iterable Expr
	Body     *Block
}

func (n *ForStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.ForPos, end
}
func (n *ForStmt) String() string { return fmt.Sprintf("for %s", n.Var.Lexeme) }

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct{ Tok token.Token }

func (n *BreakStmt) Span() (start, end token.Pos) { return n.Tok.Pos, n.Tok.Pos }
func (n *BreakStmt) String() string               { return "break" }

// ContinueStmt jumps to the next iteration of the nearest enclosing loop.
type ContinueStmt struct{ Tok token.Token }

func (n *ContinueStmt) Span() (start, end token.Pos) { return n.Tok.Pos, n.Tok.Pos }
func (n *ContinueStmt) String() string               { return "continue" }

// ReturnStmt returns from the enclosing function. Value is nil for a bare
// `return`.
type ReturnStmt struct {
	Tok   token.Token
	Value Expr
}

func (n *ReturnStmt) Span() (start, end token.Pos) {
	end = n.Tok.Pos
	if n.Value != nil {
		_, end = n.Value.Span()
	}
	return n.Tok.Pos, end
}
func (n *ReturnStmt) String() string { return "return" }
