package compiler

import (
	"fmt"
	"testing"

	"github.com/mna/zephyr/lang/token"
	"github.com/stretchr/testify/require"
)

func TestScopeDeclareDuplicateLocal(t *testing.T) {
	s := newScope(nil, "main")
	s.beginBlock()
	var diags Diagnostics

	s.declare("x", token.MakePos(1, 1), false, &diags)
	require.Empty(t, diags)

	s.declare("x", token.MakePos(2, 1), false, &diags)
	require.Len(t, diags, 1)
	require.Equal(t, DuplicateLocal, diags[0].Kind)
}

func TestScopeEndBlockPopsOnlyCurrentDepth(t *testing.T) {
	s := newScope(nil, "main")
	var diags Diagnostics

	s.beginBlock()
	s.declare("outer", token.MakePos(1, 1), false, &diags)

	s.beginBlock()
	s.declare("inner1", token.MakePos(2, 1), false, &diags)
	s.declare("inner2", token.MakePos(3, 1), false, &diags)

	popped := s.endBlock()
	require.Len(t, popped, 2)
	require.Equal(t, "inner1", popped[0].name)
	require.Equal(t, "inner2", popped[1].name)
	require.Len(t, s.symbols, 1)
	require.Equal(t, "outer", s.symbols[0].name)
}

func TestScopeResolveLocalShadowing(t *testing.T) {
	s := newScope(nil, "main")
	var diags Diagnostics
	s.beginBlock()
	s.declare("x", token.MakePos(1, 1), false, &diags)
	s.beginBlock()
	s.declare("x", token.MakePos(2, 1), false, &diags)

	idx, sym, ok := s.resolveLocal("x")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Equal(t, 1, sym.depth)
}

func TestScopeMaxSeenTracksHighWaterMark(t *testing.T) {
	s := newScope(nil, "main")
	var diags Diagnostics
	s.beginBlock()
	s.declare("a", token.MakePos(1, 1), false, &diags)
	s.declare("b", token.MakePos(1, 1), false, &diags)
	require.Equal(t, 2, s.maxSeen)
	s.endBlock()
	require.Equal(t, 2, s.maxSeen)
}

func TestAddUpvalueDedups(t *testing.T) {
	s := newScope(nil, "inner")
	var diags Diagnostics
	idx1 := s.addUpvalue("x", true, 0, &diags, token.MakePos(1, 1))
	idx2 := s.addUpvalue("x", true, 0, &diags, token.MakePos(1, 1))
	require.Equal(t, idx1, idx2)
	require.Len(t, s.upvalues, 1)
}

func TestAddUpvalueTooMany(t *testing.T) {
	s := newScope(nil, "inner")
	var diags Diagnostics
	for i := 0; i < 256; i++ {
		s.addUpvalue(fmt.Sprintf("v%d", i), true, i, &diags, token.MakePos(1, 1))
	}
	require.Empty(t, diags)
	// fill the rest of the 16-bit upvalue space directly: going through
	// addUpvalue's dedup scan one entry at a time would be quadratic.
	for i := 256; i <= maxPoolEntries; i++ {
		s.upvalues = append(s.upvalues, UpvalueDesc{IsLocal: true, Index: i})
	}
	s.addUpvalue("overflow", true, maxPoolEntries+1, &diags, token.MakePos(1, 1))
	require.Len(t, diags, 1)
	require.Equal(t, TooManyUpValues, diags[0].Kind)
}

func TestResolveUpvalueChainsThroughEnclosingScopes(t *testing.T) {
	outer := newScope(nil, "outer")
	var diags Diagnostics
	outer.beginBlock()
	outer.declare("x", token.MakePos(1, 1), false, &diags)

	middle := newScope(outer, "middle")
	inner := newScope(middle, "inner")

	idx, ok := inner.resolveUpvalue("x", &diags, token.MakePos(1, 1))
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Len(t, middle.upvalues, 1)
	require.True(t, middle.upvalues[0].IsLocal)
	require.Len(t, inner.upvalues, 1)
	require.False(t, inner.upvalues[0].IsLocal)

	outerSym, _, _ := outer.resolveLocal("x")
	_ = outerSym
	require.True(t, outer.symbols[0].captured)
}

func TestGlobalTableDuplicateDeclare(t *testing.T) {
	g := newGlobalTable()
	var diags Diagnostics
	g.declare("x", token.MakePos(1, 1), false, false, &diags)
	require.Empty(t, diags)
	g.declare("x", token.MakePos(2, 1), true, false, &diags)
	require.Len(t, diags, 1)
	require.Equal(t, DuplicateGlobal, diags[0].Kind)

	sym, ok := g.lookup("x")
	require.True(t, ok)
	require.False(t, sym.isConst)
	require.Equal(t, []string{"x"}, g.order)
}
