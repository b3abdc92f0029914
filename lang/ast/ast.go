// Package ast defines the closed set of abstract syntax tree node kinds
// the compiler accepts as input. Parsing and lexing are out of scope for
// this module: an external front-end is expected to construct these nodes
// directly (or a textual assembler stands in for testing, see
// lang/compiler/asm.go).
package ast

import (
	"fmt"

	"github.com/mna/zephyr/lang/token"
)

// Node is any node in the AST. Every node reports the source span it
// covers, which the compiler uses to stamp every emitted instruction with
// a (line, column) pair.
type Node interface {
	fmt.Stringer
	Span() (start, end token.Pos)
}

// Expr is an expression node; compiling one always leaves exactly one
// value on the evaluation stack.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Decl is a declaration statement: it both declares a symbol and is a
// Stmt, so it can appear anywhere a statement can.
type Decl interface {
	Stmt
	decl()
}

// Block is a sequence of statements sharing one lexical scope.
type Block struct {
	Start, End token.Pos
	Stmts      []Stmt
}

func (*Block) stmt() {}

func (b *Block) Span() (start, end token.Pos) { return b.Start, b.End }
func (b *Block) String() string               { return fmt.Sprintf("block(%d stmts)", len(b.Stmts)) }
