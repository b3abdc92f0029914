package compiler

import (
	"testing"

	"github.com/mna/zephyr/lang/token"
	"github.com/stretchr/testify/require"
)

func TestEmitIndexedPicksForm(t *testing.T) {
	e := newEmitter("top")
	e.emitIndexed(GetGlobal, GetGlobalLong, 10, token.MakePos(1, 1))
	require.Equal(t, []byte{byte(GetGlobal), 10}, e.proto.Code)

	e = newEmitter("top")
	e.emitIndexed(GetGlobal, GetGlobalLong, 300, token.MakePos(1, 1))
	require.Equal(t, byte(GetGlobalLong), e.proto.Code[0])
	require.Equal(t, []byte{1, 44}, e.proto.Code[1:3]) // 300 big-endian
}

func TestAddConstantInternsStrings(t *testing.T) {
	e := newEmitter("top")
	idx1, ok := e.addConstant("hello")
	require.True(t, ok)
	idx2, ok := e.addConstant("hello")
	require.True(t, ok)
	require.Equal(t, idx1, idx2)
	require.Len(t, e.proto.Constants, 1)

	idx3, ok := e.addConstant("world")
	require.True(t, ok)
	require.NotEqual(t, idx1, idx3)
}

func TestEmitJumpPatchJump(t *testing.T) {
	e := newEmitter("top")
	site := e.emitJump(JumpIfFalsePop, token.MakePos(1, 1))
	e.emit0(LoadTrue, token.MakePos(2, 1))
	e.emit0(LoadFalse, token.MakePos(3, 1))
	ok := e.patchJump(site)
	require.True(t, ok)

	delta := int(e.proto.Code[site])<<8 | int(e.proto.Code[site+1])
	require.Equal(t, 2, delta) // two zero-operand instructions patched over
}

func TestEmitLoop(t *testing.T) {
	e := newEmitter("top")
	loopStart := e.currentOffset()
	e.emit0(LoadTrue, token.MakePos(1, 1))
	ok := e.emitLoop(loopStart, token.MakePos(2, 1))
	require.True(t, ok)
}

func TestEmitPopN(t *testing.T) {
	t.Run("zero emits nothing", func(t *testing.T) {
		e := newEmitter("top")
		e.emitPopN(0, token.MakePos(1, 1))
		require.Empty(t, e.proto.Code)
	})
	t.Run("one emits a plain Pop", func(t *testing.T) {
		e := newEmitter("top")
		e.emitPopN(1, token.MakePos(1, 1))
		require.Equal(t, []byte{byte(Pop)}, e.proto.Code)
	})
	t.Run("several emits PopN with a count operand", func(t *testing.T) {
		e := newEmitter("top")
		e.emitPopN(3, token.MakePos(1, 1))
		require.Equal(t, []byte{byte(PopN), 3}, e.proto.Code)
	})
	t.Run("above byte range falls back to individual Pops", func(t *testing.T) {
		e := newEmitter("top")
		e.emitPopN(257, token.MakePos(1, 1))
		require.Len(t, e.proto.Code, 257)
		for _, b := range e.proto.Code {
			require.Equal(t, byte(Pop), b)
		}
	})
}
