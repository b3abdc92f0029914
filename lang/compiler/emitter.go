package compiler

import (
	"encoding/binary"
	"math"

	"github.com/mna/zephyr/lang/token"
)

// maxPoolEntries is the largest index a Long-form operand can address: a
// 16-bit operand space, per the chunk invariant that a constant pool never
// exceeds 2^16 entries.
const maxPoolEntries = math.MaxUint16

// emitter accumulates the instruction stream, position table and constant
// pool for a single FunctionProto as it is being compiled.
type emitter struct {
	proto   *FunctionProto
	strPool map[string]int // interns string constants by value
}

func newEmitter(name string) *emitter {
	return &emitter{
		proto:   &FunctionProto{Name: name},
		strPool: make(map[string]int),
	}
}

// emit0 appends a zero-operand opcode.
func (e *emitter) emit0(op Opcode, pos token.Pos) int {
	at := len(e.proto.Code)
	e.proto.Code = append(e.proto.Code, byte(op))
	e.proto.Positions = append(e.proto.Positions, pos)
	return at
}

// emit1 appends an opcode followed by a single raw operand byte.
func (e *emitter) emit1(op Opcode, operand byte, pos token.Pos) int {
	at := e.emit0(op, pos)
	e.proto.Code = append(e.proto.Code, operand)
	e.proto.Positions = append(e.proto.Positions, pos)
	return at
}

// emit2 appends an opcode followed by a big-endian 2-byte operand.
func (e *emitter) emit2(op Opcode, operand uint16, pos token.Pos) int {
	at := e.emit0(op, pos)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], operand)
	e.proto.Code = append(e.proto.Code, buf[:]...)
	e.proto.Positions = append(e.proto.Positions, pos, pos)
	return at
}

// emitIndexed picks the short form (1-byte operand) when idx fits in a
// byte, otherwise the long form (2-byte operand), and emits it.
func (e *emitter) emitIndexed(short, long Opcode, idx int, pos token.Pos) int {
	if idx < 0 || idx > maxPoolEntries {
		panic("compiler: index out of range for indexed opcode")
	}
	if idx <= math.MaxUint8 {
		return e.emit1(short, byte(idx), pos)
	}
	return e.emit2(long, uint16(idx), pos)
}

// addConstant appends v to the constant pool and returns its index,
// deduping string values so the same literal text always resolves to the
// same slot.
func (e *emitter) addConstant(v any) (int, bool) {
	if s, ok := v.(string); ok {
		if idx, ok := e.strPool[s]; ok {
			return idx, true
		}
		idx := len(e.proto.Constants)
		if idx > maxPoolEntries {
			return 0, false
		}
		e.proto.Constants = append(e.proto.Constants, s)
		e.strPool[s] = idx
		return idx, true
	}
	idx := len(e.proto.Constants)
	if idx > maxPoolEntries {
		return 0, false
	}
	e.proto.Constants = append(e.proto.Constants, v)
	return idx, true
}

// emitJump emits a forward-jump opcode with a placeholder 2-byte operand
// and returns its patch site (the offset of the first operand byte), to be
// filled in later by patchJump.
func (e *emitter) emitJump(op Opcode, pos token.Pos) int {
	e.emit0(op, pos)
	site := len(e.proto.Code)
	e.proto.Code = append(e.proto.Code, 0, 0)
	e.proto.Positions = append(e.proto.Positions, pos, pos)
	return site
}

// patchJump back-patches the placeholder operand at site so that the jump
// lands just after the last instruction emitted so far. Returns false (a
// JumpOutOfRange condition) if the resulting delta does not fit in 16
// bits.
func (e *emitter) patchJump(site int) bool {
	delta := len(e.proto.Code) - (site + 2)
	if delta < 0 || delta > math.MaxUint16 {
		return false
	}
	binary.BigEndian.PutUint16(e.proto.Code[site:site+2], uint16(delta))
	return true
}

// emitLoop emits a backward LoopJump targeting loopStart (the offset of
// the first instruction of the loop body to re-execute). Returns false on
// a JumpOutOfRange condition.
func (e *emitter) emitLoop(loopStart int, pos token.Pos) bool {
	e.emit0(LoopJump, pos)
	delta := len(e.proto.Code) + 2 - loopStart
	if delta < 0 || delta > math.MaxUint16 {
		return false
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(delta))
	e.proto.Code = append(e.proto.Code, buf[:]...)
	e.proto.Positions = append(e.proto.Positions, pos, pos)
	return true
}

// emitPopN pops count values off the stack, using the dedicated PopN
// opcode when count fits a byte operand and falling back to individual
// Pop instructions otherwise (PopN has no long form: scopes wide enough
// to need one are vanishingly rare and not worth a 3rd encoding).
func (e *emitter) emitPopN(count int, pos token.Pos) {
	switch {
	case count <= 0:
	case count == 1:
		e.emit0(Pop, pos)
	case count <= math.MaxUint8:
		e.emit1(PopN, byte(count), pos)
	default:
		for i := 0; i < count; i++ {
			e.emit0(Pop, pos)
		}
	}
}

// currentOffset returns the offset of the next instruction to be emitted,
// i.e. a label for a future backward jump.
func (e *emitter) currentOffset() int { return len(e.proto.Code) }
