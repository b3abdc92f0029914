package compiler

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mna/zephyr/lang/token"
)

// This file implements a human-readable/writable textual form of a
// compiled Program, in the manner of an assembler. It exists so the
// compiler's output format can be exercised directly in tests without
// going through an external front-end: a test writes (or a disassembly
// prints) the fixed-width bytecode described by opcode.go as plain text,
// and Asm/Dasm round-trip between the two.
//
// The format looks like this (indentation is cosmetic; section order is
// not):
//
//	program:
//
//	function: top 0 0 2 2
//		constants:
//			int    1234
//			float  1.5
//			string "abc"
//			function: helper 1 2 0 1
//				constants:
//					string "x"
//				code:
//					get_local 0	# 000
//					return		# 001
//			end
//		upvalues:
//			local 0
//			upvalue 1
//		code:
//			load_0i		# 000
//			pop		# 001
//			jump 4		# 002
//			return		# 003
//			return		# 004
//
// Jump operands and the closures/class opcodes' trailing fields are
// written inline on the instruction's own line, addressed by instruction
// index (not raw byte offset): "jump 4" jumps to the instruction at index
// 4, regardless of how many operand bytes precede it in the stream.
// make_closure/make_closure_long/make_closure_large/make_closure_long_large
// are followed by the function constant's index, then one "local N" or
// "upvalue N" pair per upvalue (the count comes from that constant's own
// upvalue count, not from the instruction stream). make_class/
// make_class_long are followed by the name constant's index and the
// method count.

var asmSections = map[string]bool{
	"program:":   true,
	"function:":  true,
	"constants:": true,
	"upvalues:":  true,
	"code:":      true,
	"end":        true,
}

// Asm parses the textual assembly form produced by Dasm (or hand-written
// for tests) back into a Program.
func Asm(b []byte) (*Program, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(b))}
	fields := a.next()
	if len(fields) == 0 || !strings.EqualFold(fields[0], "program:") {
		return nil, errors.New("expected program section")
	}
	fields = a.next()
	if len(fields) == 0 || !strings.EqualFold(fields[0], "function:") {
		return nil, errors.New("expected top-level function")
	}
	top, fields, err := a.function(fields)
	if err != nil {
		return nil, err
	}
	if len(fields) != 0 {
		return nil, fmt.Errorf("unexpected trailing section: %s", fields[0])
	}
	return &Program{Top: top}, nil
}

type asm struct {
	s       *bufio.Scanner
	rawLine string
}

func (a *asm) next() []string {
	a.rawLine = ""
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	return nil
}

func (a *asm) function(fields []string) (*FunctionProto, []string, error) {
	if len(fields) < 6 {
		return nil, nil, fmt.Errorf("invalid function header: want 6 fields, got %d (%s)", len(fields), strings.Join(fields, " "))
	}
	minArity, err1 := strconv.Atoi(fields[2])
	maxArity, err2 := strconv.Atoi(fields[3])
	upvalCount, err3 := strconv.Atoi(fields[4])
	localCount, err4 := strconv.Atoi(fields[5])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil, nil, fmt.Errorf("invalid function header fields: %s", strings.Join(fields, " "))
	}

	proto := &FunctionProto{Name: fields[1], MinArity: minArity, MaxArity: maxArity, LocalCount: localCount}

	fields = a.next()
	fields, err := a.constants(proto, fields)
	if err != nil {
		return nil, nil, err
	}
	fields, err = a.upvalues(proto, fields)
	if err != nil {
		return nil, nil, err
	}
	if upvalCount != len(proto.Upvalues) {
		return nil, nil, fmt.Errorf("function %s: declared %d upvalues, found %d", proto.Name, upvalCount, len(proto.Upvalues))
	}
	proto.UpvalueCount = len(proto.Upvalues)
	fields, err = a.code(proto, fields)
	if err != nil {
		return nil, nil, err
	}
	return proto, fields, nil
}

func (a *asm) constants(proto *FunctionProto, fields []string) ([]string, error) {
	if len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields, nil
	}
	for fields = a.next(); len(fields) > 0 && !asmSections[strings.ToLower(fields[0])]; fields = a.next() {
		switch strings.ToLower(fields[0]) {
		case "int":
			i, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid int constant: %w", err)
			}
			proto.Constants = append(proto.Constants, i)
		case "float":
			fl, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid float constant: %w", err)
			}
			proto.Constants = append(proto.Constants, fl)
		case "string":
			raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(a.rawLine), "string"))
			qs, err := strconv.QuotedPrefix(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid string constant: %w", err)
			}
			s, err := strconv.Unquote(qs)
			if err != nil {
				return nil, fmt.Errorf("invalid string constant: %w", err)
			}
			proto.Constants = append(proto.Constants, s)
		case "function:":
			nested, rest, err := a.function(fields)
			if err != nil {
				return nil, err
			}
			proto.Constants = append(proto.Constants, nested)
			if len(rest) == 0 || !strings.EqualFold(rest[0], "end") {
				return nil, errors.New("expected 'end' to close nested function constant")
			}
			fields = rest
			continue
		default:
			return nil, fmt.Errorf("invalid constant kind: %s", fields[0])
		}
	}
	return fields, nil
}

func (a *asm) upvalues(proto *FunctionProto, fields []string) ([]string, error) {
	if len(fields) == 0 || !strings.EqualFold(fields[0], "upvalues:") {
		return fields, nil
	}
	for fields = a.next(); len(fields) > 0 && !asmSections[strings.ToLower(fields[0])]; fields = a.next() {
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid upvalue descriptor: %s", strings.Join(fields, " "))
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid upvalue index: %w", err)
		}
		switch strings.ToLower(fields[0]) {
		case "local":
			proto.Upvalues = append(proto.Upvalues, UpvalueDesc{IsLocal: true, Index: idx})
		case "upvalue":
			proto.Upvalues = append(proto.Upvalues, UpvalueDesc{IsLocal: false, Index: idx})
		default:
			return nil, fmt.Errorf("invalid upvalue kind: %s", fields[0])
		}
	}
	return fields, nil
}

type pendingJump struct {
	site, target int
	loop         bool
}

func (a *asm) code(proto *FunctionProto, fields []string) ([]string, error) {
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		return fields, errors.New("expected code section")
	}

	e := &emitter{proto: proto, strPool: map[string]int{}}
	var pending []pendingJump
	var instrOffsets []int // index -> byte offset, in instruction order

	for fields = a.next(); len(fields) > 0 && !asmSections[strings.ToLower(fields[0])]; fields = a.next() {
		mnemonic := strings.ToLower(fields[0])
		op, ok := reverseLookupOpcode[mnemonic]
		if !ok {
			return nil, fmt.Errorf("invalid opcode: %s", fields[0])
		}
		instrOffsets = append(instrOffsets, len(e.proto.Code))
		pos := token.MakePos(len(instrOffsets), 1)

		switch op.operand() {
		case operandNone:
			if len(fields) != 1 {
				return nil, fmt.Errorf("opcode %s takes no operand", fields[0])
			}
			e.emit0(op, pos)
		case operandByte, operandShort:
			if err := a.codeIndexed(e, op, fields, pos); err != nil {
				return nil, err
			}
		case operandJump:
			if len(fields) != 2 {
				return nil, fmt.Errorf("opcode %s expects a target instruction index", fields[0])
			}
			target, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("invalid jump target: %w", err)
			}
			site := e.emitJump(op, pos)
			pending = append(pending, pendingJump{site: site, target: target, loop: op == LoopJump})
		}
	}
	instrOffsets = append(instrOffsets, len(e.proto.Code)) // sentinel: one past the end

	for _, pj := range pending {
		if pj.target < 0 || pj.target >= len(instrOffsets) {
			return nil, fmt.Errorf("jump target %d out of range", pj.target)
		}
		targetOffset := instrOffsets[pj.target]
		var delta int
		if pj.loop {
			delta = pj.site + 2 - targetOffset
		} else {
			delta = targetOffset - (pj.site + 2)
		}
		if delta < 0 || delta > math.MaxUint16 {
			return nil, fmt.Errorf("jump at byte %d: target too far (delta %d)", pj.site, delta)
		}
		binary.BigEndian.PutUint16(e.proto.Code[pj.site:pj.site+2], uint16(delta))
	}
	return fields, nil
}

// codeIndexed handles every mnemonic whose operand is a plain byte/short
// pool or symbol index, plus the four MakeClosure* variants (constant
// index followed by that many "local N"/"upvalue N" descriptor pairs) and
// MakeClass/MakeClassLong (name index, then method count).
func (a *asm) codeIndexed(e *emitter, op Opcode, fields []string, pos token.Pos) error {
	if len(fields) < 2 {
		return fmt.Errorf("opcode %s expects an operand", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("invalid operand for %s: %w", fields[0], err)
	}

	switch op {
	case MakeClosure, MakeClosureLong, MakeClosureLarge, MakeClosureLongLarge:
		return a.codeClosure(e, op, n, fields[2:], pos)
	case MakeClass, MakeClassLong:
		if len(fields) != 3 {
			return errors.New("make_class expects a name index and a method count")
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("invalid method count: %w", err)
		}
		if op.operand() == operandByte {
			e.emit1(op, byte(n), pos)
			e.proto.Code = append(e.proto.Code, byte(count))
			e.proto.Positions = append(e.proto.Positions, pos)
		} else {
			e.emit2(op, uint16(n), pos)
			var buf [2]byte
			binary.BigEndian.PutUint16(buf[:], uint16(count))
			e.proto.Code = append(e.proto.Code, buf[:]...)
			e.proto.Positions = append(e.proto.Positions, pos, pos)
		}
		return nil
	default:
		if len(fields) != 2 {
			return fmt.Errorf("opcode %s takes exactly one operand", fields[0])
		}
		if op.operand() == operandByte {
			if n < 0 || n > math.MaxUint8 {
				return fmt.Errorf("operand %d out of range for %s", n, fields[0])
			}
			e.emit1(op, byte(n), pos)
		} else {
			if n < 0 || n > math.MaxUint16 {
				return fmt.Errorf("operand %d out of range for %s", n, fields[0])
			}
			e.emit2(op, uint16(n), pos)
		}
		return nil
	}
}

func (a *asm) codeClosure(e *emitter, op Opcode, constIdx int, descFields []string, pos token.Pos) error {
	if constIdx < 0 || constIdx >= len(e.proto.Constants) {
		return fmt.Errorf("make_closure: constant index %d out of range", constIdx)
	}
	nested, ok := e.proto.Constants[constIdx].(*FunctionProto)
	if !ok {
		return fmt.Errorf("make_closure: constant %d is not a function", constIdx)
	}
	if len(descFields) != 2*nested.UpvalueCount {
		return fmt.Errorf("make_closure: function %q declares %d upvalues, got %d descriptor fields", nested.Name, nested.UpvalueCount, len(descFields)/2)
	}

	if op.operand() == operandByte {
		e.emit1(op, byte(constIdx), pos)
	} else {
		e.emit2(op, uint16(constIdx), pos)
	}

	large := op == MakeClosureLarge || op == MakeClosureLongLarge
	for i := 0; i < len(descFields); i += 2 {
		var isLocal byte
		switch strings.ToLower(descFields[i]) {
		case "local":
			isLocal = 1
		case "upvalue":
			isLocal = 0
		default:
			return fmt.Errorf("invalid upvalue descriptor kind: %s", descFields[i])
		}
		idx, err := strconv.Atoi(descFields[i+1])
		if err != nil {
			return fmt.Errorf("invalid upvalue descriptor index: %w", err)
		}
		e.proto.Code = append(e.proto.Code, isLocal)
		e.proto.Positions = append(e.proto.Positions, pos)
		if large {
			var buf [2]byte
			binary.BigEndian.PutUint16(buf[:], uint16(idx))
			e.proto.Code = append(e.proto.Code, buf[:]...)
			e.proto.Positions = append(e.proto.Positions, pos, pos)
		} else {
			e.proto.Code = append(e.proto.Code, byte(idx))
			e.proto.Positions = append(e.proto.Positions, pos)
		}
	}
	return nil
}
