package compiler

import (
	"encoding/binary"
	"math"

	"github.com/mna/zephyr/lang/ast"
	"github.com/mna/zephyr/lang/token"
)

func (c *Compiler) functionDecl(d *ast.FunctionDecl) {
	pos := d.Name.Pos
	name := d.Name.Lexeme

	minArity, maxArity := d.Arity()
	if c.isGlobalScope() {
		proto := c.compileFunctionBody(name, d.Params, d.Body, minArity, maxArity)
		c.emitClosureConstant(proto, pos)
		c.globals.declare(name, pos, true, true, &c.diags)
		c.defineGlobal(name, pos)
		return
	}

	// Declare (and mark initialized) before compiling the body so a
	// recursive reference to the function's own name resolves as a capture
	// of this slot rather than an outer binding or an undeclared name.
	sym := c.cur().scope.declare(name, pos, true, &c.diags)
	sym.initialized = true
	proto := c.compileFunctionBody(name, d.Params, d.Body, minArity, maxArity)
	c.emitClosureConstant(proto, pos)
}

// compileFunctionBody compiles a function's parameter list and body in a
// fresh frame and returns its FunctionProto. The proto's Upvalues
// reference slots in the *enclosing* frame (or that frame's own
// upvalues), ready for the caller to emit alongside a MakeClosure*
// instruction in the enclosing frame.
func (c *Compiler) compileFunctionBody(name string, params []*ast.Parameter, body *ast.Block, minArity, maxArity int) *FunctionProto {
	c.pushFrame(name, minArity, maxArity, true)
	sc := c.cur().scope
	sc.beginBlock()

	for _, p := range params {
		sym := sc.declare(p.Name.Lexeme, p.Name.Pos, false, &c.diags)
		sym.initialized = true
	}

	var defaultCount int
	for _, p := range params {
		switch {
		case p.Default != nil:
			c.expr(p.Default)
			defaultCount++
		case p.Optional:
			c.cur().em.emit0(LoadNull, p.Name.Pos)
			defaultCount++
		}
	}
	if defaultCount > 0 {
		if defaultCount > math.MaxUint8 {
			c.errorf(CapacityExceeded, body.Start, "function %q has too many defaulted parameters", name)
		} else {
			c.cur().em.emit1(BindDefaults, byte(defaultCount), body.Start)
		}
	}

	for _, st := range body.Stmts {
		c.stmt(st)
		if c.panicking {
			c.synchronize()
		}
	}

	return c.finishFrame(body.End)
}

// emitClosureConstant interns proto into the current (enclosing) frame's
// constant pool and emits the MakeClosure* instruction plus its trailing
// raw upvalue descriptors.
func (c *Compiler) emitClosureConstant(proto *FunctionProto, pos token.Pos) {
	f := c.cur().em
	idx, ok := f.addConstant(proto)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}

	large := len(proto.Upvalues) > math.MaxUint8

	var op Opcode
	switch {
	case idx <= math.MaxUint8 && !large:
		op = MakeClosure
	case idx > math.MaxUint8 && !large:
		op = MakeClosureLong
	case idx <= math.MaxUint8 && large:
		op = MakeClosureLarge
	default:
		op = MakeClosureLongLarge
	}

	if idx <= math.MaxUint8 {
		f.emit1(op, byte(idx), pos)
	} else {
		f.emit2(op, uint16(idx), pos)
	}

	for _, uv := range proto.Upvalues {
		var isLocalByte byte
		if uv.IsLocal {
			isLocalByte = 1
		}
		f.proto.Code = append(f.proto.Code, isLocalByte)
		f.proto.Positions = append(f.proto.Positions, pos)
		if large {
			var buf [2]byte
			buf[0] = byte(uv.Index >> 8)
			buf[1] = byte(uv.Index)
			f.proto.Code = append(f.proto.Code, buf[:]...)
			f.proto.Positions = append(f.proto.Positions, pos, pos)
		} else {
			f.proto.Code = append(f.proto.Code, byte(uv.Index))
			f.proto.Positions = append(f.proto.Positions, pos)
		}
	}
}

// classDecl lowers a class declaration by compiling each method as an
// ordinary function body (the receiver is bound at call time by the
// runtime's method-dispatch convention, not by a synthesized parameter)
// and packaging the resulting closures behind a single MakeClass[Long]
// instruction; this reuses the same per-function compilation machinery
// FunctionDecl uses; see DESIGN.md for why classes are not given a
// dedicated lowering path instead.
func (c *Compiler) classDecl(d *ast.ClassDecl) {
	pos := d.ClassPos
	name := d.Name.Lexeme

	for _, m := range d.Methods {
		min, max := m.Arity()
		proto := c.compileFunctionBody(m.Name.Lexeme, m.Params, m.Body, min, max)
		c.emitClosureConstant(proto, m.FnPos)
	}

	f := c.cur().em
	if len(d.Methods) > maxPoolEntries {
		c.errorf(CapacityExceeded, pos, "class %q has too many methods", name)
		return
	}

	// The class's runtime descriptor is built from: the class name
	// constant, the method count, and the N closures just pushed (in
	// declaration order) by the loop above.
	classNameIdx, ok := f.addConstant(name)
	if !ok {
		c.errorf(CapacityExceeded, pos, "constant pool exceeded %d entries", maxPoolEntries+1)
		return
	}
	op, wide := MakeClass, false
	if classNameIdx > math.MaxUint8 || len(d.Methods) > math.MaxUint8 {
		op, wide = MakeClassLong, true
	}
	if wide {
		f.emit2(op, uint16(classNameIdx), pos)
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(len(d.Methods)))
		f.proto.Code = append(f.proto.Code, buf[:]...)
		f.proto.Positions = append(f.proto.Positions, pos, pos)
	} else {
		f.emit1(op, byte(classNameIdx), pos)
		f.proto.Code = append(f.proto.Code, byte(len(d.Methods)))
		f.proto.Positions = append(f.proto.Positions, pos)
	}

	if c.isGlobalScope() {
		c.globals.declare(name, pos, true, true, &c.diags)
		c.defineGlobal(name, pos)
		return
	}
	sym := c.cur().scope.declare(name, pos, true, &c.diags)
	sym.initialized = true
}
