package ast

import (
	"fmt"

	"github.com/mna/zephyr/lang/token"
)

func (*LiteralExpr) expr()         {}
func (*UnaryExpr) expr()           {}
func (*BinaryExpr) expr()          {}
func (*TernaryExpr) expr()         {}
func (*IdentExpr) expr()           {}
func (*VarReassignmentExpr) expr() {}
func (*ObjectGetExpr) expr()       {}
func (*ObjectSetExpr) expr()       {}
func (*ArrayExpr) expr()           {}
func (*TupleExpr) expr()           {}
func (*IndexExpr) expr()           {}
func (*CallExpr) expr()            {}
func (*NewInstanceExpr) expr()     {}

// LiteralKind identifies the variant held by a LiteralExpr.
type LiteralKind int

//nolint:revive
const (
	LitNull LiteralKind = iota
	LitBool
	LitInt
	LitFloat
	LitString
)

// LiteralExpr is a literal value appearing directly in source: null, a
// bool, an int, a float or a string. It is the only expression kind that
// can end up stored verbatim in a chunk's constant pool.
type LiteralExpr struct {
	Tok   token.Token
	Kind  LiteralKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

func (n *LiteralExpr) Span() (start, end token.Pos) { return n.Tok.Pos, n.Tok.Pos }
func (n *LiteralExpr) String() string {
	switch n.Kind {
	case LitNull:
		return "null"
	case LitBool:
		return fmt.Sprintf("%t", n.Bool)
	case LitInt:
		return fmt.Sprintf("%d", n.Int)
	case LitFloat:
		return fmt.Sprintf("%g", n.Float)
	default:
		return fmt.Sprintf("%q", n.Str)
	}
}

// UnaryExpr is a unary operator expression: -x, not x, ~x.
type UnaryExpr struct {
	Op      token.Kind
	OpPos   token.Pos
	Operand Expr
}

func (n *UnaryExpr) Span() (start, end token.Pos) {
	_, end = n.Operand.Span()
	return n.OpPos, end
}
func (n *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", n.Op, n.Operand) }

// BinaryExpr is a binary operator expression, including the short-circuit
// 'and'/'or' forms.
type BinaryExpr struct {
	Left  Expr
	Op    token.Kind
	OpPos token.Pos
	Right Expr
}

func (n *BinaryExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right) }

// TernaryExpr is a `cond ? then : else` conditional expression.
type TernaryExpr struct {
	Cond, Then, Else Expr
	QuestionPos      token.Pos
	ColonPos         token.Pos
}

func (n *TernaryExpr) Span() (start, end token.Pos) {
	start, _ = n.Cond.Span()
	_, end = n.Else.Span()
	return start, end
}
func (n *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", n.Cond, n.Then, n.Else)
}

// IdentExpr is a bare identifier reference.
type IdentExpr struct {
	Tok token.Token
}

func (n *IdentExpr) Span() (start, end token.Pos) { return n.Tok.Pos, n.Tok.Pos }
func (n *IdentExpr) String() string               { return n.Tok.Lexeme }

// VarReassignmentExpr assigns (or compound-assigns) to a plain identifier.
// Op is token.ILLEGAL for a plain '=', otherwise one of the *_ASSIGN kinds.
type VarReassignmentExpr struct {
	Target token.Token
	Op     token.Kind
	OpPos  token.Pos
	Value  Expr
}

func (n *VarReassignmentExpr) Span() (start, end token.Pos) {
	_, end = n.Value.Span()
	return n.Target.Pos, end
}
func (n *VarReassignmentExpr) String() string {
	return fmt.Sprintf("(%s %s= %s)", n.Target.Lexeme, n.Op, n.Value)
}

// ObjectGetExpr is a property access: target.name.
type ObjectGetExpr struct {
	Target Expr
	Name   token.Token
}

func (n *ObjectGetExpr) Span() (start, end token.Pos) {
	start, _ = n.Target.Span()
	return start, n.Name.Pos
}
func (n *ObjectGetExpr) String() string { return fmt.Sprintf("%s.%s", n.Target, n.Name.Lexeme) }

// ObjectSetExpr assigns (or compound-assigns) to a property: target.name = value.
type ObjectSetExpr struct {
	Target Expr
	Name   token.Token
	Op     token.Kind
	OpPos  token.Pos
	Value  Expr
}

func (n *ObjectSetExpr) Span() (start, end token.Pos) {
	start, _ = n.Target.Span()
	_, end = n.Value.Span()
	return start, end
}
func (n *ObjectSetExpr) String() string {
	return fmt.Sprintf("(%s.%s %s= %s)", n.Target, n.Name.Lexeme, n.Op, n.Value)
}

// ArrayExpr is an array literal: [a, b, c].
type ArrayExpr struct {
	LBrackPos, RBrackPos token.Pos
	Items                []Expr
}

func (n *ArrayExpr) Span() (start, end token.Pos) { return n.LBrackPos, n.RBrackPos }
func (n *ArrayExpr) String() string               { return fmt.Sprintf("array(%d)", len(n.Items)) }

// TupleExpr is a tuple literal: (a, b, c).
type TupleExpr struct {
	LParenPos, RParenPos token.Pos
	Items                []Expr
}

func (n *TupleExpr) Span() (start, end token.Pos) { return n.LParenPos, n.RParenPos }
func (n *TupleExpr) String() string               { return fmt.Sprintf("tuple(%d)", len(n.Items)) }

// IndexExpr is an indexing expression: target[index].
type IndexExpr struct {
	Target, Index Expr
	RBrackPos     token.Pos
}

func (n *IndexExpr) Span() (start, end token.Pos) {
	start, _ = n.Target.Span()
	return start, n.RBrackPos
}
func (n *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", n.Target, n.Index) }

// CallExpr is a function call: callee(args...).
type CallExpr struct {
	Callee    Expr
	Args      []Expr
	RParenPos token.Pos
}

func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Callee.Span()
	return start, n.RParenPos
}
func (n *CallExpr) String() string { return fmt.Sprintf("%s(%d args)", n.Callee, len(n.Args)) }

// NewInstanceExpr is `new Class(args...)`.
type NewInstanceExpr struct {
	NewPos    token.Pos
	Class     Expr
	Args      []Expr
	RParenPos token.Pos
}

func (n *NewInstanceExpr) Span() (start, end token.Pos) { return n.NewPos, n.RParenPos }
func (n *NewInstanceExpr) String() string {
	return fmt.Sprintf("new %s(%d args)", n.Class, len(n.Args))
}
