package compiler

import (
	"math"

	"github.com/mna/zephyr/lang/ast"
	"github.com/mna/zephyr/lang/token"
)

// expr compiles e, leaving exactly one value on the evaluation stack.
func (c *Compiler) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.LiteralExpr:
		c.literal(e)
	case *ast.UnaryExpr:
		c.unary(e)
	case *ast.BinaryExpr:
		c.binary(e)
	case *ast.TernaryExpr:
		c.ternary(e)
	case *ast.IdentExpr:
		c.ident(e)
	case *ast.VarReassignmentExpr:
		c.varReassignment(e)
	case *ast.ObjectGetExpr:
		c.objectGet(e)
	case *ast.ObjectSetExpr:
		c.objectSet(e)
	case *ast.ArrayExpr:
		c.arrayLit(e)
	case *ast.TupleExpr:
		c.tupleLit(e)
	case *ast.IndexExpr:
		c.index(e)
	case *ast.CallExpr:
		c.call(e)
	case *ast.NewInstanceExpr:
		c.newInstance(e)
	default:
		panic("compiler: unhandled expression node")
	}
}

func (c *Compiler) literal(e *ast.LiteralExpr) {
	f := c.cur().em
	pos := e.Tok.Pos
	switch e.Kind {
	case ast.LitNull:
		f.emit0(LoadNull, pos)
	case ast.LitBool:
		if e.Bool {
			f.emit0(LoadTrue, pos)
		} else {
			f.emit0(LoadFalse, pos)
		}
	case ast.LitInt:
		c.compileIntLiteral(e.Int, pos)
	case ast.LitFloat:
		switch e.Float {
		case 0:
			f.emit0(Load0F, pos)
		case 1:
			f.emit0(Load1F, pos)
		default:
			c.loadConstant(e.Float, pos)
		}
	case ast.LitString:
		c.loadConstant(e.Str, pos)
	}
}

func (c *Compiler) compileIntLiteral(v int64, pos token.Pos) {
	f := c.cur().em
	switch {
	case v == 0:
		f.emit0(Load0I, pos)
	case v == 1:
		f.emit0(Load1I, pos)
	case v >= 2 && v <= math.MaxUint8:
		f.emit1(LoadImmByte, byte(v), pos)
	case v > math.MaxUint8 && v <= math.MaxUint16:
		f.emit2(LoadImmShort, uint16(v), pos)
	default:
		c.loadConstant(v, pos)
	}
}

// loadConstant interns v into the pool and emits LoadConstant[Long].
func (c *Compiler) loadConstant(v any, pos token.Pos) {
	f := c.cur().em
	idx, ok := f.addConstant(v)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}
	f.emitIndexed(LoadConstant, LoadConstantLong, idx, pos)
}

func (c *Compiler) unary(e *ast.UnaryExpr) {
	c.expr(e.Operand)
	f := c.cur().em
	switch e.Op {
	case token.NEG, token.SUB:
		f.emit0(Negate, e.OpPos)
	case token.NOT:
		f.emit0(LogicNot, e.OpPos)
	case token.BITNOT:
		f.emit0(BitwiseNot, e.OpPos)
	default:
		panic("compiler: unhandled unary operator")
	}
}

var binaryOpcodes = map[token.Kind]Opcode{
	token.ADD:     Add,
	token.SUB:     Subtract,
	token.MUL:     Multiply,
	token.DIV:     Divide,
	token.MOD:     Modulus,
	token.EXPO:    Expo,
	token.BITAND:  BitwiseAnd,
	token.BITOR:   BitwiseOr,
	token.BITXOR:  BitwiseXor,
	token.SHL:     ShiftLeft,
	token.SHR:     ShiftRight,
	token.NULLISH: NullishCoalescing,
	token.RANGE:   MakeRange,
	token.EQL:     Equals,
	token.NEQ:     NotEquals,
	token.GT:      GreaterThan,
	token.GE:      GreaterThanEq,
	token.LT:      LessThan,
	token.LE:      LessThanEq,
}

func (c *Compiler) binary(e *ast.BinaryExpr) {
	f := c.cur().em
	switch e.Op {
	case token.AND:
		c.expr(e.Left)
		site := f.emitJump(JumpIfFalseOrPop, e.OpPos)
		c.expr(e.Right)
		if !f.patchJump(site) {
			c.errorf(JumpOutOfRange, e.OpPos, "short-circuit expression too large to jump over")
		}
		return
	case token.OR:
		c.expr(e.Left)
		site := f.emitJump(JumpIfTrueOrPop, e.OpPos)
		c.expr(e.Right)
		if !f.patchJump(site) {
			c.errorf(JumpOutOfRange, e.OpPos, "short-circuit expression too large to jump over")
		}
		return
	}

	op, ok := binaryOpcodes[e.Op]
	if !ok {
		panic("compiler: unhandled binary operator")
	}
	c.expr(e.Left)
	c.expr(e.Right)
	f.emit0(op, e.OpPos)
}

func (c *Compiler) ternary(e *ast.TernaryExpr) {
	f := c.cur().em
	c.expr(e.Cond)
	thenSite := f.emitJump(JumpIfFalsePop, e.QuestionPos)
	c.expr(e.Then)
	elseSite := f.emitJump(Jump, e.ColonPos)
	if !f.patchJump(thenSite) {
		c.errorf(JumpOutOfRange, e.QuestionPos, "ternary expression too large to jump over")
	}
	c.expr(e.Else)
	if !f.patchJump(elseSite) {
		c.errorf(JumpOutOfRange, e.ColonPos, "ternary expression too large to jump over")
	}
}

func (c *Compiler) ident(e *ast.IdentExpr) {
	c.loadName(e.Tok.Lexeme, e.Tok.Pos)
}

// loadName resolves name in the current frame chain and emits the
// matching Get instruction.
func (c *Compiler) loadName(name string, pos token.Pos) {
	f := c.cur()
	if idx, sym, ok := f.scope.resolveLocal(name); ok {
		if !sym.initialized {
			c.errorf(UseBeforeInit, pos, "local %q used before it is initialized", name)
			return
		}
		sym.used = true
		f.em.emitIndexed(GetLocal, GetLocalLong, idx, pos)
		return
	}
	if idx, ok := f.scope.resolveUpvalue(name, &c.diags, pos); ok {
		f.em.emitIndexed(GetUpVal, GetUpValLong, idx, pos)
		return
	}
	c.loadGlobalByName(name, pos)
}

func (c *Compiler) loadGlobalByName(name string, pos token.Pos) {
	f := c.cur().em
	idx, ok := f.addConstant(name)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}
	f.emitIndexed(GetGlobal, GetGlobalLong, idx, pos)
}

func (c *Compiler) varReassignment(e *ast.VarReassignmentExpr) {
	name := e.Target.Lexeme
	f := c.cur()

	if e.Op == token.ILLEGAL {
		c.expr(e.Value)
		c.storeName(name, e.Target.Pos)
		return
	}

	// Compound assignment: evaluate the current value, then the right-hand
	// side, then the matching binary operator, then store the result back.
	c.loadName(name, e.Target.Pos)
	c.expr(e.Value)
	op, ok := binaryOpcodes[compoundBase(e.Op)]
	if !ok {
		panic("compiler: unhandled compound-assignment operator")
	}
	f.em.emit0(op, e.OpPos)
	c.storeName(name, e.Target.Pos)
}

// compoundBase maps a `op=` token kind to the plain binary operator it
// stands in for.
func compoundBase(op token.Kind) token.Kind {
	switch op {
	case token.ADD_ASSIGN:
		return token.ADD
	case token.SUB_ASSIGN:
		return token.SUB
	case token.MUL_ASSIGN:
		return token.MUL
	case token.DIV_ASSIGN:
		return token.DIV
	case token.MOD_ASSIGN:
		return token.MOD
	case token.EXPO_ASSIGN:
		return token.EXPO
	case token.SHL_ASSIGN:
		return token.SHL
	case token.SHR_ASSIGN:
		return token.SHR
	case token.BITAND_ASSIGN:
		return token.BITAND
	case token.BITXOR_ASSIGN:
		return token.BITXOR
	case token.BITOR_ASSIGN:
		return token.BITOR
	default:
		return token.ILLEGAL
	}
}

// storeName resolves name and emits the matching Set instruction; the
// value to store must already be on top of the stack.
func (c *Compiler) storeName(name string, pos token.Pos) {
	f := c.cur()
	if idx, sym, ok := f.scope.resolveLocal(name); ok {
		if sym.isConst {
			c.errorf(UndeclaredAssignment, pos, "cannot assign to constant %q", name)
			return
		}
		sym.used = true
		f.em.emitIndexed(SetLocal, SetLocalLong, idx, pos)
		return
	}
	if idx, ok := f.scope.resolveUpvalue(name, &c.diags, pos); ok {
		f.em.emitIndexed(SetUpVal, SetUpValLong, idx, pos)
		return
	}
	g, ok := c.globals.lookup(name)
	if !ok {
		c.errorf(UndeclaredAssignment, pos, "assignment to undeclared name %q", name)
		return
	}
	if g.isConst {
		c.errorf(UndeclaredAssignment, pos, "cannot assign to constant %q", name)
		return
	}
	idx, ok := f.em.addConstant(name)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}
	f.em.emitIndexed(SetGlobal, SetGlobalLong, idx, pos)
}

func (c *Compiler) objectGet(e *ast.ObjectGetExpr) {
	c.expr(e.Target)
	c.emitPropAccess(GetProp, GetPropLong, e.Name.Lexeme, e.Name.Pos)
}

// objectSet compiles `target.name op= value`, evaluating target exactly
// once even for compound operators: the target value is duplicated on the
// stack so both the getter and the setter consume their own copy.
func (c *Compiler) objectSet(e *ast.ObjectSetExpr) {
	f := c.cur().em
	c.expr(e.Target)

	if e.Op == token.ILLEGAL {
		c.expr(e.Value)
		c.emitPropAccess(SetProp, SetPropLong, e.Name.Lexeme, e.Name.Pos)
		return
	}

	f.emit0(Dup, e.OpPos)
	c.emitPropAccess(GetProp, GetPropLong, e.Name.Lexeme, e.Name.Pos)
	c.expr(e.Value)
	op, ok := binaryOpcodes[compoundBase(e.Op)]
	if !ok {
		panic("compiler: unhandled compound-assignment operator")
	}
	f.emit0(op, e.OpPos)
	c.emitPropAccess(SetProp, SetPropLong, e.Name.Lexeme, e.Name.Pos)
}

func (c *Compiler) emitPropAccess(short, long Opcode, name string, pos token.Pos) {
	f := c.cur().em
	idx, ok := f.addConstant(name)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}
	f.emitIndexed(short, long, idx, pos)
}

// arrayLit compiles items in reverse source order so that a runtime that
// builds the array by repeatedly popping the stack reconstructs the
// original left-to-right order without needing its own pass to reverse.
func (c *Compiler) arrayLit(e *ast.ArrayExpr) {
	if len(e.Items) > maxPoolEntries {
		c.errorf(CapacityExceeded, e.RBrackPos, "array literal exceeds %d elements", maxPoolEntries)
		return
	}
	for i := len(e.Items) - 1; i >= 0; i-- {
		c.expr(e.Items[i])
	}
	f := c.cur().em
	f.emitIndexed(MakeArray, MakeArrayLong, len(e.Items), e.RBrackPos)
}

func (c *Compiler) tupleLit(e *ast.TupleExpr) {
	if len(e.Items) > maxPoolEntries {
		c.errorf(CapacityExceeded, e.RParenPos, "tuple literal exceeds %d elements", maxPoolEntries)
		return
	}
	for i := len(e.Items) - 1; i >= 0; i-- {
		c.expr(e.Items[i])
	}
	f := c.cur().em
	f.emitIndexed(MakeTuple, MakeTupleLong, len(e.Items), e.RParenPos)
}

func (c *Compiler) index(e *ast.IndexExpr) {
	c.expr(e.Target)
	c.expr(e.Index)
	c.cur().em.emit0(Indexing, e.RBrackPos)
}

func (c *Compiler) call(e *ast.CallExpr) {
	c.expr(e.Callee)
	for _, arg := range e.Args {
		c.expr(arg)
	}
	if len(e.Args) > math.MaxUint8 {
		c.errorf(TooManyArgs, e.RParenPos, "call has %d arguments, max is %d", len(e.Args), math.MaxUint8)
		return
	}
	c.cur().em.emit1(Call, byte(len(e.Args)), e.RParenPos)
}

func (c *Compiler) newInstance(e *ast.NewInstanceExpr) {
	c.expr(e.Class)
	for _, arg := range e.Args {
		c.expr(arg)
	}
	if len(e.Args) > math.MaxUint8 {
		c.errorf(TooManyArgs, e.RParenPos, "constructor call has %d arguments, max is %d", len(e.Args), math.MaxUint8)
		return
	}
	c.cur().em.emit1(MakeInstance, byte(len(e.Args)), e.RParenPos)
}
