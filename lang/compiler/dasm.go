package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Dasm writes p to its textual assembly form; see asm.go for the format.
func Dasm(p *Program) ([]byte, error) {
	d := &dasm{buf: new(bytes.Buffer)}
	d.buf.WriteString("program:\n\n")
	if p.Top == nil {
		return nil, fmt.Errorf("program has no top-level function")
	}
	if err := d.function(p.Top, 0); err != nil {
		return nil, err
	}
	return d.buf.Bytes(), nil
}

type dasm struct {
	buf *bytes.Buffer
}

func (d *dasm) indent(depth int) string {
	return string(bytes.Repeat([]byte("\t"), depth+1))
}

func (d *dasm) function(fn *FunctionProto, depth int) error {
	ind := d.indent(depth)
	fmt.Fprintf(d.buf, "%sfunction: %s %d %d %d %d\n", ind, fn.Name, fn.MinArity, fn.MaxArity, len(fn.Upvalues), fn.LocalCount)

	if len(fn.Constants) > 0 {
		fmt.Fprintf(d.buf, "%s\tconstants:\n", ind)
		for i, cst := range fn.Constants {
			switch v := cst.(type) {
			case int64:
				fmt.Fprintf(d.buf, "%s\t\tint %d\t# %03d\n", ind, v, i)
			case float64:
				fmt.Fprintf(d.buf, "%s\t\tfloat %s\t# %03d\n", ind, strconv.FormatFloat(v, 'g', -1, 64), i)
			case string:
				fmt.Fprintf(d.buf, "%s\t\tstring %q\t# %03d\n", ind, v, i)
			case *FunctionProto:
				if err := d.function(v, depth+2); err != nil {
					return err
				}
				fmt.Fprintf(d.buf, "%s\t\tend\t# %03d\n", ind, i)
			default:
				return fmt.Errorf("unsupported constant type %T at index %d", cst, i)
			}
		}
	}

	if len(fn.Upvalues) > 0 {
		fmt.Fprintf(d.buf, "%s\tupvalues:\n", ind)
		for i, uv := range fn.Upvalues {
			kind := "upvalue"
			if uv.IsLocal {
				kind = "local"
			}
			fmt.Fprintf(d.buf, "%s\t\t%s %d\t# %03d\n", ind, kind, uv.Index, i)
		}
	}

	if len(fn.Code) > 0 {
		fmt.Fprintf(d.buf, "%s\tcode:\n", ind)
		if err := d.decodeAll(fn, ind); err != nil {
			return err
		}
	}
	return nil
}

// decodeAll walks fn.Code once, recording each instruction's start offset
// (to translate jump byte-deltas to instruction indices) and printing its
// mnemonic form.
func (d *dasm) decodeAll(fn *FunctionProto, ind string) error {
	var starts []int
	at := 0
	for at < len(fn.Code) {
		starts = append(starts, at)
		sz, err := instrSize(fn, at)
		if err != nil {
			return err
		}
		at += sz
	}
	offsetToIndex := make(map[int]int, len(starts)+1)
	for i, off := range starts {
		offsetToIndex[off] = i
	}
	offsetToIndex[len(fn.Code)] = len(starts)

	at = 0
	for i := range starts {
		op := Opcode(fn.Code[at])
		at++
		switch op.operand() {
		case operandNone:
			fmt.Fprintf(d.buf, "%s\t\t%s\t# %03d\n", ind, op, i)
		case operandByte:
			n := int(fn.Code[at])
			at++
			if extra, err := d.trailingFields(fn, op, n, &at); err != nil {
				return err
			} else {
				fmt.Fprintf(d.buf, "%s\t\t%s %d%s\t# %03d\n", ind, op, n, extra, i)
			}
		case operandShort:
			n := int(binary.BigEndian.Uint16(fn.Code[at : at+2]))
			at += 2
			if extra, err := d.trailingFields(fn, op, n, &at); err != nil {
				return err
			} else {
				fmt.Fprintf(d.buf, "%s\t\t%s %d%s\t# %03d\n", ind, op, n, extra, i)
			}
		case operandJump:
			dist := int(binary.BigEndian.Uint16(fn.Code[at : at+2]))
			siteStart := at
			at += 2
			var targetOffset int
			if op == LoopJump {
				targetOffset = siteStart + 2 - dist
			} else {
				targetOffset = siteStart + 2 + dist
			}
			idx, ok := offsetToIndex[targetOffset]
			if !ok {
				return fmt.Errorf("jump at instruction %d targets a mid-instruction offset %d", i, targetOffset)
			}
			fmt.Fprintf(d.buf, "%s\t\t%s %d\t# %03d\n", ind, op, idx, i)
		}
	}
	return nil
}

// trailingFields decodes (and renders as assembly text) the extra bytes
// that follow a MakeClosure*'s or MakeClass*'s normal operand: a run of
// upvalue descriptor pairs, or a method count. It also advances *at past
// those bytes.
func (d *dasm) trailingFields(fn *FunctionProto, op Opcode, operand int, at *int) (string, error) {
	switch op {
	case MakeClosure, MakeClosureLong, MakeClosureLarge, MakeClosureLongLarge:
		if operand < 0 || operand >= len(fn.Constants) {
			return "", fmt.Errorf("make_closure: constant index %d out of range", operand)
		}
		nested, ok := fn.Constants[operand].(*FunctionProto)
		if !ok {
			return "", fmt.Errorf("make_closure: constant %d is not a function", operand)
		}
		large := op == MakeClosureLarge || op == MakeClosureLongLarge
		var sb bytes.Buffer
		for i := 0; i < nested.UpvalueCount; i++ {
			isLocal := fn.Code[*at] != 0
			*at++
			var idx int
			if large {
				idx = int(binary.BigEndian.Uint16(fn.Code[*at : *at+2]))
				*at += 2
			} else {
				idx = int(fn.Code[*at])
				*at++
			}
			kind := "upvalue"
			if isLocal {
				kind = "local"
			}
			fmt.Fprintf(&sb, " %s %d", kind, idx)
		}
		return sb.String(), nil
	case MakeClass, MakeClassLong:
		var count int
		if op == MakeClass {
			count = int(fn.Code[*at])
			*at++
		} else {
			count = int(binary.BigEndian.Uint16(fn.Code[*at : *at+2]))
			*at += 2
		}
		return fmt.Sprintf(" %d", count), nil
	default:
		return "", nil
	}
}

// instrSize returns the total encoded size, in bytes, of the instruction
// starting at offset at in fn.Code (opcode byte plus any operand and
// trailing bytes).
func instrSize(fn *FunctionProto, at int) (int, error) {
	op := Opcode(fn.Code[at])
	switch op.operand() {
	case operandNone:
		return 1, nil
	case operandJump:
		return 3, nil
	case operandByte:
		sz := 2
		extra, err := trailingSize(fn, op, int(fn.Code[at+1]))
		if err != nil {
			return 0, err
		}
		return sz + extra, nil
	case operandShort:
		sz := 3
		n := int(binary.BigEndian.Uint16(fn.Code[at+1 : at+3]))
		extra, err := trailingSize(fn, op, n)
		if err != nil {
			return 0, err
		}
		return sz + extra, nil
	}
	return 0, fmt.Errorf("invalid opcode %s at offset %d", op, at)
}

func trailingSize(fn *FunctionProto, op Opcode, operand int) (int, error) {
	switch op {
	case MakeClosure, MakeClosureLong, MakeClosureLarge, MakeClosureLongLarge:
		if operand < 0 || operand >= len(fn.Constants) {
			return 0, fmt.Errorf("make_closure: constant index %d out of range", operand)
		}
		nested, ok := fn.Constants[operand].(*FunctionProto)
		if !ok {
			return 0, fmt.Errorf("make_closure: constant %d is not a function", operand)
		}
		descSize := 2
		if op == MakeClosureLarge || op == MakeClosureLongLarge {
			descSize = 3
		}
		return nested.UpvalueCount * descSize, nil
	case MakeClass:
		return 1, nil
	case MakeClassLong:
		return 2, nil
	default:
		return 0, nil
	}
}
