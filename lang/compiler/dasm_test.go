package compiler_test

import (
	"testing"

	"github.com/mna/zephyr/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestDasmJumpTargetsMidInstruction(t *testing.T) {
	// Asm addresses jumps by instruction index, so it can never produce a
	// jump into the middle of an instruction; a malformed case has to come
	// from a hand-built Program instead. The jump's distance of 1 lands on
	// the operand byte of the load_imm_byte that follows it.
	top := &compiler.FunctionProto{
		Name: "Top",
		Code: []byte{byte(compiler.Jump), 0, 1, byte(compiler.LoadImmByte), 7, byte(compiler.Return)},
	}
	_, err := compiler.Dasm(&compiler.Program{Top: top})
	require.ErrorContains(t, err, "mid-instruction")
}

func TestDasmMakeClosureConstantIndexOutOfRange(t *testing.T) {
	top := &compiler.FunctionProto{
		Name: "Top",
		Code: []byte{byte(compiler.MakeClosure), 5, byte(compiler.Pop), byte(compiler.Return)},
	}
	_, err := compiler.Dasm(&compiler.Program{Top: top})
	require.ErrorContains(t, err, "constant index")
}

func TestDasmMakeClosureConstantNotAFunction(t *testing.T) {
	top := &compiler.FunctionProto{
		Name:      "Top",
		Constants: []any{int64(1)},
		Code:      []byte{byte(compiler.MakeClosure), 0, byte(compiler.Pop), byte(compiler.Return)},
	}
	_, err := compiler.Dasm(&compiler.Program{Top: top})
	require.ErrorContains(t, err, "not a function")
}

func TestDasmRendersNestedFunctionConstant(t *testing.T) {
	nested := &compiler.FunctionProto{Name: "inner", Code: []byte{byte(compiler.Return)}}
	top := &compiler.FunctionProto{
		Name:      "Top",
		Constants: []any{nested},
		Code:      []byte{byte(compiler.Return)},
	}
	out, err := compiler.Dasm(&compiler.Program{Top: top})
	require.NoError(t, err)
	require.Contains(t, string(out), "function: inner")
	require.Contains(t, string(out), "end\t# 000")
}

func TestDasmRendersUpvalues(t *testing.T) {
	top := &compiler.FunctionProto{
		Name:     "Top",
		Upvalues: []compiler.UpvalueDesc{{IsLocal: true, Index: 0}, {IsLocal: false, Index: 1}},
		Code:     []byte{byte(compiler.Return)},
	}
	out, err := compiler.Dasm(&compiler.Program{Top: top})
	require.NoError(t, err)
	require.Contains(t, string(out), "local 0")
	require.Contains(t, string(out), "upvalue 1")
}

// An out-of-range opcode byte decodes as operandNone (see Opcode.operand's
// bounds check) and renders as its illegal mnemonic rather than erroring;
// Asm is what rejects unknown mnemonics on the way in.
func TestDasmUnknownOpcodeByteRendersIllegalMnemonic(t *testing.T) {
	top := &compiler.FunctionProto{Name: "Top", Code: []byte{0xFF}}
	out, err := compiler.Dasm(&compiler.Program{Top: top})
	require.NoError(t, err)
	require.Contains(t, string(out), "illegal op")
}
