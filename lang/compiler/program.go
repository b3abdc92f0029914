package compiler

import "github.com/mna/zephyr/lang/token"

// FunctionProto is the compiled form of a single function (including the
// implicit top-level function of a compiled unit). It owns its own
// instruction stream and constant pool; nested functions are stored as
// constants in their enclosing FunctionProto's pool and materialized at
// runtime via MakeClosure.
type FunctionProto struct {
	Name string

	// Code is the instruction stream: opcode bytes interleaved with their
	// operand bytes, in the encoding described by each Opcode.
	Code []byte

	// Positions holds one token.Pos per byte of Code, recording the
	// source position that produced it. Len(Positions) == len(Code).
	Positions []token.Pos

	// Constants is the pool of literal and nested-function values
	// referenced by LoadConstant[Long], DefineGlobal[Long], MakeClosure*
	// and MakeClass*. Strings are interned: the same string value always
	// resolves to the same pool index within one FunctionProto.
	Constants []any

	MinArity     int
	MaxArity     int
	UpvalueCount int
	// Upvalues describes, for each upvalue slot (len == UpvalueCount), where
	// at construction time the closed-over cell comes from.
	Upvalues []UpvalueDesc

	// LocalCount is the total number of local slots (including parameters)
	// this function body was compiled with; used to size the call frame.
	LocalCount int
}

// UpvalueDesc records how a closure's I-th upvalue is populated when a
// MakeClosure* instruction runs: either by capturing a local slot of the
// immediately enclosing frame (IsLocal true), or by forwarding one of that
// frame's own upvalues (IsLocal false).
type UpvalueDesc struct {
	IsLocal bool
	Index   int
}

// Program is the top-level output of compiling a unit of source: a single
// FunctionProto representing the implicit top-level code, which may
// reference nested FunctionProtos through its constant pool.
type Program struct {
	Top *FunctionProto
}
