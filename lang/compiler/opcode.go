package compiler

import "fmt"

// Opcode identifies a single bytecode instruction. Most instructions that
// carry a pool, symbol or count operand come in a short (1-byte operand)
// and long (2-byte operand) form; the compiler picks whichever fits, see
// emitIndexed in emitter.go. Call, MakeInstance, BindDefaults and PopN
// only have the 1-byte form.
type Opcode uint8

//nolint:revive
const (
	// load-immediate specials, zero operand bytes
	LoadNull Opcode = iota
	LoadTrue
	LoadFalse
	Load0I
	Load1I
	Load0F
	Load1F

	// load-immediate small integers
	LoadImmByte  // u8 operand: integer in [2,255]
	LoadImmShort // u16 operand: integer in [256,65535]

	// constant pool
	LoadConstant
	LoadConstantLong

	// unary
	Negate
	LogicNot
	BitwiseNot

	// binary arithmetic/bitwise
	Add
	Subtract
	Multiply
	Divide
	Modulus
	Expo
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	ShiftLeft
	ShiftRight
	NullishCoalescing
	MakeRange

	// comparisons
	Equals
	NotEquals
	GreaterThan
	GreaterThanEq
	LessThan
	LessThanEq

	// variable access
	GetGlobal
	GetGlobalLong
	SetGlobal
	SetGlobalLong
	GetLocal
	GetLocalLong
	SetLocal
	SetLocalLong
	GetUpVal
	GetUpValLong
	SetUpVal
	SetUpValLong

	// properties
	GetProp
	GetPropLong
	SetProp
	SetPropLong

	// indexing
	Indexing

	// aggregate construction
	MakeArray
	MakeArrayLong
	MakeTuple
	MakeTupleLong

	// --- opcodes with and without operands are interleaved below; see
	// operandKinds for which ones carry an operand ---

	// control flow (jump operands are always emitted as a fixed 2-byte,
	// big-endian payload: see emitJump/patchJump/emitLoop)
	Jump
	JumpIfFalse      // pops only when condition is truthy (does not jump)
	JumpIfFalsePop   // always pops the condition
	JumpIfFalseOrPop // pops only when it does NOT jump (AND short-circuit)
	JumpIfTrueOrPop  // pops only when it does NOT jump (OR short-circuit)
	LoopJump         // backward jump

	// iteration protocol for `for`
	HasNext
	Next

	// calls
	Call
	MakeInstance

	// closures
	MakeClosure
	MakeClosureLong
	MakeClosureLarge
	MakeClosureLongLarge
	CloseUpVal
	CloseUpValLong

	// classes
	MakeClass
	MakeClassLong

	// functions
	BindDefaults
	DefineGlobal
	DefineGlobalLong
	Return

	// stack bookkeeping
	Pop
	PopN
	Dup

	opcodeMax
)

// operandKind classifies the operand (if any) an Opcode's mnemonic is
// followed by in both the binary encoding and the textual assembly form.
type operandKind int

//nolint:revive
const (
	operandNone  operandKind = iota // no operand bytes
	operandByte                     // one raw operand byte
	operandShort                    // one big-endian 2-byte operand
	operandJump                     // fixed 2-byte forward/backward jump distance
)

var operandKinds = [...]operandKind{
	LoadImmByte:          operandByte,
	LoadImmShort:         operandShort,
	LoadConstant:         operandByte,
	LoadConstantLong:     operandShort,
	GetGlobal:            operandByte,
	GetGlobalLong:        operandShort,
	SetGlobal:            operandByte,
	SetGlobalLong:        operandShort,
	GetLocal:             operandByte,
	GetLocalLong:         operandShort,
	SetLocal:             operandByte,
	SetLocalLong:         operandShort,
	GetUpVal:             operandByte,
	GetUpValLong:         operandShort,
	SetUpVal:             operandByte,
	SetUpValLong:         operandShort,
	GetProp:              operandByte,
	GetPropLong:          operandShort,
	SetProp:              operandByte,
	SetPropLong:          operandShort,
	MakeArray:            operandByte,
	MakeArrayLong:        operandShort,
	MakeTuple:            operandByte,
	MakeTupleLong:        operandShort,
	Jump:                 operandJump,
	JumpIfFalse:          operandJump,
	JumpIfFalsePop:       operandJump,
	JumpIfFalseOrPop:     operandJump,
	JumpIfTrueOrPop:      operandJump,
	LoopJump:             operandJump,
	Call:                 operandByte,
	MakeInstance:         operandByte,
	MakeClosure:          operandByte,  // + trailing raw upvalue descriptors
	MakeClosureLong:      operandShort, // + trailing raw upvalue descriptors
	MakeClosureLarge:     operandByte,  // + trailing raw upvalue descriptors (wide index)
	MakeClosureLongLarge: operandShort, // + trailing raw upvalue descriptors (wide index)
	CloseUpVal:           operandByte,
	CloseUpValLong:       operandShort,
	MakeClass:            operandByte,  // + trailing method count byte
	MakeClassLong:        operandShort, // + trailing method count short
	BindDefaults:         operandByte,
	DefineGlobal:         operandByte,
	DefineGlobalLong:     operandShort,
	PopN:                 operandByte,
}

func (op Opcode) operand() operandKind {
	if op < Opcode(len(operandKinds)) {
		return operandKinds[op]
	}
	return operandNone
}

var opcodeNames = [...]string{
	LoadNull:             "load_null",
	LoadTrue:             "load_true",
	LoadFalse:            "load_false",
	Load0I:               "load_0i",
	Load1I:               "load_1i",
	Load0F:               "load_0f",
	Load1F:               "load_1f",
	LoadImmByte:          "load_imm_byte",
	LoadImmShort:         "load_imm_short",
	LoadConstant:         "load_constant",
	LoadConstantLong:     "load_constant_long",
	Negate:               "negate",
	LogicNot:             "logic_not",
	BitwiseNot:           "bitwise_not",
	Add:                  "add",
	Subtract:             "subtract",
	Multiply:             "multiply",
	Divide:               "divide",
	Modulus:              "modulus",
	Expo:                 "expo",
	BitwiseAnd:           "bitwise_and",
	BitwiseOr:            "bitwise_or",
	BitwiseXor:           "bitwise_xor",
	ShiftLeft:            "shift_left",
	ShiftRight:           "shift_right",
	NullishCoalescing:    "nullish_coalescing",
	MakeRange:            "make_range",
	Equals:               "equals",
	NotEquals:            "not_equals",
	GreaterThan:          "greater_than",
	GreaterThanEq:        "greater_than_eq",
	LessThan:             "less_than",
	LessThanEq:           "less_than_eq",
	GetGlobal:            "get_global",
	GetGlobalLong:        "get_global_long",
	SetGlobal:            "set_global",
	SetGlobalLong:        "set_global_long",
	GetLocal:             "get_local",
	GetLocalLong:         "get_local_long",
	SetLocal:             "set_local",
	SetLocalLong:         "set_local_long",
	GetUpVal:             "get_upval",
	GetUpValLong:         "get_upval_long",
	SetUpVal:             "set_upval",
	SetUpValLong:         "set_upval_long",
	GetProp:              "get_prop",
	GetPropLong:          "get_prop_long",
	SetProp:              "set_prop",
	SetPropLong:          "set_prop_long",
	Indexing:             "indexing",
	MakeArray:            "make_array",
	MakeArrayLong:        "make_array_long",
	MakeTuple:            "make_tuple",
	MakeTupleLong:        "make_tuple_long",
	Jump:                 "jump",
	JumpIfFalse:          "jump_if_false",
	JumpIfFalsePop:       "jump_if_false_pop",
	JumpIfFalseOrPop:     "jump_if_false_or_pop",
	JumpIfTrueOrPop:      "jump_if_true_or_pop",
	LoopJump:             "loop_jump",
	HasNext:              "has_next",
	Next:                 "next",
	Call:                 "call",
	MakeInstance:         "make_instance",
	MakeClosure:          "make_closure",
	MakeClosureLong:      "make_closure_long",
	MakeClosureLarge:     "make_closure_large",
	MakeClosureLongLarge: "make_closure_long_large",
	CloseUpVal:           "close_upval",
	CloseUpValLong:       "close_upval_long",
	MakeClass:            "make_class",
	MakeClassLong:        "make_class_long",
	BindDefaults:         "bind_defaults",
	DefineGlobal:         "define_global",
	DefineGlobalLong:     "define_global_long",
	Return:               "return",
	Pop:                  "pop",
	PopN:                 "pop_n",
	Dup:                  "dup",
}

func (op Opcode) String() string {
	if op < opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		if s != "" {
			m[s] = Opcode(op)
		}
	}
	return m
}()
