package compiler

import (
	"github.com/mna/zephyr/lang/ast"
	"github.com/mna/zephyr/lang/token"
)

// isGlobalScope reports whether a declaration at the current point lands
// in the module's global table rather than as a function-local: only
// declarations directly inside the top-level block (not nested inside an
// `if`/`while`/`for` body there) qualify.
func (c *Compiler) isGlobalScope() bool {
	f := c.cur()
	return len(c.frames) == 1 && f.scope.depth == 0
}

// block compiles every statement of b inside a fresh lexical scope,
// popping (and closing over, where captured) its locals on exit.
func (c *Compiler) block(b *ast.Block) {
	c.cur().scope.beginBlock()
	for _, s := range b.Stmts {
		c.stmt(s)
		if c.panicking {
			c.synchronize()
		}
	}
	popped := c.cur().scope.endBlock()
	c.closeLocals(popped, b.End)
}

// closeLocals emits CloseUpVal[Long] for every captured local among
// popped, in reverse declaration order, followed by a single pop of all
// of them.
func (c *Compiler) closeLocals(popped []*symbol, pos token.Pos) {
	f := c.cur().em
	for i := len(popped) - 1; i >= 0; i-- {
		if popped[i].captured {
			f.emitIndexed(CloseUpVal, CloseUpValLong, popped[i].slot, pos)
		}
		if !popped[i].used && !popped[i].isConst {
			c.diags.add(UnusedSymbol, popped[i].pos, "local %q declared and not used", popped[i].name)
		}
	}
	f.emitPopN(len(popped), pos)
}

func (c *Compiler) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Block:
		c.block(s)
	case *ast.ExprStmt:
		c.expr(s.X)
		c.cur().em.emit0(Pop, mustPos(s))
	case *ast.VarDecl:
		c.varDecl(s)
	case *ast.ConstDecl:
		c.constDecl(s)
	case *ast.FunctionDecl:
		c.functionDecl(s)
	case *ast.ClassDecl:
		c.classDecl(s)
	case *ast.IfStmt:
		c.ifStmt(s)
	case *ast.WhileStmt:
		c.whileStmt(s)
	case *ast.ForStmt:
		c.forStmt(s)
	case *ast.BreakStmt:
		c.breakStmt(s)
	case *ast.ContinueStmt:
		c.continueStmt(s)
	case *ast.ReturnStmt:
		c.returnStmt(s)
	default:
		panic("compiler: unhandled statement node")
	}
}

func mustPos(s ast.Stmt) token.Pos {
	start, _ := s.Span()
	return start
}

func (c *Compiler) varDecl(d *ast.VarDecl) {
	pos := d.Name.Pos
	if c.isGlobalScope() {
		if d.Value != nil {
			c.expr(d.Value)
		} else {
			c.cur().em.emit0(LoadNull, pos)
		}
		c.globals.declare(d.Name.Lexeme, pos, false, false, &c.diags)
		c.defineGlobal(d.Name.Lexeme, pos)
		return
	}

	sym := c.cur().scope.declare(d.Name.Lexeme, pos, false, &c.diags)
	if d.Value != nil {
		c.expr(d.Value)
	} else {
		c.cur().em.emit0(LoadNull, pos)
	}
	sym.initialized = true
}

func (c *Compiler) constDecl(d *ast.ConstDecl) {
	pos := d.Name.Pos
	if c.isGlobalScope() {
		c.expr(d.Value)
		c.globals.declare(d.Name.Lexeme, pos, true, false, &c.diags)
		c.defineGlobal(d.Name.Lexeme, pos)
		return
	}

	sym := c.cur().scope.declare(d.Name.Lexeme, pos, true, &c.diags)
	c.expr(d.Value)
	sym.initialized = true
}

func (c *Compiler) defineGlobal(name string, pos token.Pos) {
	f := c.cur().em
	idx, ok := f.addConstant(name)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}
	f.emitIndexed(DefineGlobal, DefineGlobalLong, idx, pos)
}

func (c *Compiler) ifStmt(s *ast.IfStmt) {
	f := c.cur().em
	c.expr(s.Cond)
	thenSite := f.emitJump(JumpIfFalsePop, s.IfPos)
	c.block(s.Then)

	if s.Else == nil {
		if !f.patchJump(thenSite) {
			c.errorf(JumpOutOfRange, s.IfPos, "if statement body too large to jump over")
		}
		return
	}

	elseSite := f.emitJump(Jump, s.IfPos)
	if !f.patchJump(thenSite) {
		c.errorf(JumpOutOfRange, s.IfPos, "if statement body too large to jump over")
	}
	switch e := s.Else.(type) {
	case *ast.IfStmt:
		c.ifStmt(e)
	default:
		c.stmt(s.Else)
	}
	if !f.patchJump(elseSite) {
		c.errorf(JumpOutOfRange, s.IfPos, "else branch too large to jump over")
	}
}

func (c *Compiler) whileStmt(s *ast.WhileStmt) {
	f := c.cur().em
	loopStart := f.currentOffset()
	c.pushLoop(loopStart)

	c.expr(s.Cond)
	exitSite := f.emitJump(JumpIfFalsePop, s.WhilePos)
	c.block(s.Body)
	if !f.emitLoop(loopStart, s.WhilePos) {
		c.errorf(JumpOutOfRange, s.WhilePos, "loop body too large to jump over")
	}
	if !f.patchJump(exitSite) {
		c.errorf(JumpOutOfRange, s.WhilePos, "loop body too large to jump over")
	}
	c.popLoop()
}

// forStmt desugars `for x in iterable { body }` to a hidden-local holding
// the iterator state plus a HasNext/Next protocol: the hidden local is
// declared in an outer block so it survives across iterations, and x is
// re-declared fresh inside the loop body block on every pass.
func (c *Compiler) forStmt(s *ast.ForStmt) {
	f := c.cur().em
	sc := c.cur().scope

	sc.beginBlock()
	c.expr(s.Iterable)
	iterSym := sc.declare("%iter", s.ForPos, false, &c.diags)
	iterSym.initialized = true

	loopStart := f.currentOffset()
	c.pushLoop(loopStart)

	f.emitIndexed(GetLocal, GetLocalLong, iterSym.slot, s.ForPos)
	f.emit0(HasNext, s.ForPos)
	exitSite := f.emitJump(JumpIfFalsePop, s.ForPos)

	sc.beginBlock()
	f.emitIndexed(GetLocal, GetLocalLong, iterSym.slot, s.ForPos)
	f.emit0(Next, s.ForPos)
	varSym := sc.declare(s.Var.Lexeme, s.Var.Pos, false, &c.diags)
	varSym.initialized = true
	for _, stmt := range s.Body.Stmts {
		c.stmt(stmt)
		if c.panicking {
			c.synchronize()
		}
	}
	popped := sc.endBlock()
	c.closeLocals(popped, s.Body.End)

	if !f.emitLoop(loopStart, s.ForPos) {
		c.errorf(JumpOutOfRange, s.ForPos, "loop body too large to jump over")
	}
	if !f.patchJump(exitSite) {
		c.errorf(JumpOutOfRange, s.ForPos, "loop body too large to jump over")
	}
	c.popLoop()

	popped = sc.endBlock()
	c.closeLocals(popped, s.ForPos)
}

func (c *Compiler) pushLoop(continueTarget int) {
	sc := c.cur().scope
	sc.loops = append(sc.loops, &loopCtx{continueTarget: continueTarget})
}

func (c *Compiler) popLoop() {
	sc := c.cur().scope
	lc := sc.loops[len(sc.loops)-1]
	sc.loops = sc.loops[:len(sc.loops)-1]
	f := c.cur().em
	for _, site := range lc.breakPatches {
		f.patchJump(site)
	}
	// continue statements jump back to the loop's re-test through emitLoop
	// at the point they are emitted; nothing left to patch for them here.
}

func (c *Compiler) breakStmt(s *ast.BreakStmt) {
	sc := c.cur().scope
	if len(sc.loops) == 0 {
		c.errorf(OrphanLoopControl, s.Tok.Pos, "break outside loop")
		return
	}
	f := c.cur().em
	site := f.emitJump(Jump, s.Tok.Pos)
	lc := sc.loops[len(sc.loops)-1]
	lc.breakPatches = append(lc.breakPatches, site)
}

func (c *Compiler) continueStmt(s *ast.ContinueStmt) {
	sc := c.cur().scope
	if len(sc.loops) == 0 {
		c.errorf(OrphanLoopControl, s.Tok.Pos, "continue outside loop")
		return
	}
	f := c.cur().em
	lc := sc.loops[len(sc.loops)-1]
	if !f.emitLoop(lc.continueTarget, s.Tok.Pos) {
		c.errorf(JumpOutOfRange, s.Tok.Pos, "continue jumps too far back")
	}
}

func (c *Compiler) returnStmt(s *ast.ReturnStmt) {
	if !c.cur().scope.isFunction {
		c.errorf(ReturnOutsideFunction, s.Tok.Pos, "return outside function")
		return
	}
	f := c.cur().em
	if s.Value != nil {
		c.expr(s.Value)
	} else {
		f.emit0(LoadNull, s.Tok.Pos)
	}
	c.closeAllLive(s.Tok.Pos)
	f.emit0(Return, s.Tok.Pos)
}

// closeAllLive emits CloseUpVal[Long] for every currently-live captured
// local of the current frame, in reverse declaration order, ahead of a
// Return: the frame is about to be torn down entirely, so every open
// upvalue pointing into it must be closed, not just the ones belonging to
// the innermost block.
func (c *Compiler) closeAllLive(pos token.Pos) {
	f := c.cur()
	for i := len(f.scope.symbols) - 1; i >= 0; i-- {
		if f.scope.symbols[i].captured {
			f.em.emitIndexed(CloseUpVal, CloseUpValLong, f.scope.symbols[i].slot, pos)
		}
	}
}
