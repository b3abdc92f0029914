// Package compiler lowers a closed-form AST (see lang/ast) directly to
// bytecode in a single pass: symbol resolution, interning of literals into
// the constant pool, and instruction emission all happen together as
// the tree is walked, rather than as separate passes over a linearized
// control-flow graph. A textual assembler/disassembler (asm.go) provides a
// human-writable stand-in for a front-end during testing.
package compiler

import (
	"github.com/mna/zephyr/lang/ast"
	"github.com/mna/zephyr/lang/token"
)

// frame holds the compiler state for a single function body: its
// instruction emitter and its lexical scope (locals + upvalues).
type frame struct {
	em    *emitter
	scope *scope
}

// Compiler lowers an AST to a Program, collecting diagnostics along the
// way instead of aborting on the first error (see Diagnostic).
type Compiler struct {
	globals   *globalTable
	diags     Diagnostics
	panicking bool
	frames    []*frame
}

// NewCompiler returns a Compiler ready to compile a single top-level
// block. Each Compiler compiles exactly one unit of source.
func NewCompiler() *Compiler {
	return &Compiler{globals: newGlobalTable()}
}

// Compile lowers top, the top-level block of a compiled unit, to a
// Program. Diagnostics accumulated during compilation are always
// returned, even on success (e.g. UnusedSymbol warnings); the Program
// return value is nil only if at least one error-level diagnostic was
// recorded.
func (c *Compiler) Compile(top *ast.Block) (*Program, Diagnostics) {
	c.pushFrame("main", 0, 0, false)
	c.block(top)
	proto := c.finishFrame(top.End)

	c.diags.Sort()
	if c.diags.HasErrors() {
		return nil, c.diags
	}
	return &Program{Top: proto}, c.diags
}

func (c *Compiler) cur() *frame { return c.frames[len(c.frames)-1] }

func (c *Compiler) pushFrame(name string, minArity, maxArity int, isFunction bool) {
	var enclosing *scope
	if len(c.frames) > 0 {
		enclosing = c.cur().scope
	}
	sc := newScope(enclosing, name)
	sc.minArity, sc.maxArity = minArity, maxArity
	sc.isFunction = isFunction
	c.frames = append(c.frames, &frame{em: newEmitter(name), scope: sc})
}

// finishFrame closes out the current frame (emitting an implicit `return
// null` if the body didn't already end in one) and pops it, returning its
// compiled FunctionProto.
func (c *Compiler) finishFrame(end token.Pos) *FunctionProto {
	f := c.cur()
	if !lastOpIsReturn(f.em.proto.Code) {
		f.em.emit0(LoadNull, end)
		c.closeAllLive(end)
		f.em.emit0(Return, end)
	}
	proto := f.em.proto
	proto.MinArity = f.scope.minArity
	proto.MaxArity = f.scope.maxArity
	proto.UpvalueCount = len(f.scope.upvalues)
	proto.Upvalues = f.scope.upvalues
	proto.LocalCount = maxLocalCount(f.scope)
	c.frames = c.frames[:len(c.frames)-1]
	return proto
}

func lastOpIsReturn(code []byte) bool {
	return len(code) > 0 && Opcode(code[len(code)-1]) == Return
}

// maxLocalCount is a coarse upper bound on the number of stack slots a
// frame's locals ever need: since symbols are popped as blocks end, the
// live count at any instant is never more than the total ever declared.
func maxLocalCount(s *scope) int {
	// symbols slice is emptied as scopes close, so track high-water mark
	// via a dedicated counter instead of len(s.symbols) at the end.
	return s.maxSeen
}

func (c *Compiler) errorf(kind Kind, pos token.Pos, format string, args ...any) {
	if c.panicking {
		return
	}
	c.panicking = true
	c.diags.add(kind, pos, format, args...)
}

// synchronize leaves panic mode; called at the next statement boundary so
// a single error doesn't cascade into a wall of bogus follow-on
// diagnostics.
func (c *Compiler) synchronize() { c.panicking = false }
