package compiler

import (
	"github.com/dolthub/swiss"
	"github.com/mna/zephyr/lang/token"
)

// SymbolKind classifies how a resolved name is stored and accessed.
type SymbolKind int

//nolint:revive
const (
	SymGlobal SymbolKind = iota
	SymLocal
	SymUpValue
)

// symbol is one declared name, local to a single function scope.
type symbol struct {
	name        string
	depth       int // lexical scope depth within the function, 0 = function body
	slot        int // stable stack slot index, assigned once at declaration
	initialized bool
	used        bool
	captured    bool // at least one nested function closes over this local
	isConst     bool
	pos         token.Pos
}

// globalSymbol is one entry of the global table. The table is queried and
// mutated only by name, but order is tracked separately so that iterating
// it (e.g. to dump a program) is deterministic across runs, which swiss.Map
// does not itself guarantee.
type globalSymbol struct {
	name    string
	isConst bool
	isFunc  bool // declared by a top-level fn/class, may be redeclared
	pos     token.Pos
}

// scope tracks the locals declared in a single function, across all of its
// nested lexical blocks (blocks do not get their own symbol table; a
// single flat slice with depth tags is enough to resolve names and to know
// which trailing locals to pop when a block ends).
type scope struct {
	enclosing *scope
	symbols   []*symbol
	depth     int
	upvalues  []UpvalueDesc
	// upvalueNames parallels upvalues; used to dedup captures of the same
	// name within one function.
	upvalueNames []string
	loops        []*loopCtx
	fnName       string
	minArity     int
	maxArity     int
	maxSeen      int // high-water mark of len(symbols), for frame sizing
	isFunction   bool
}

// loopCtx tracks the patch sites for break in the loop currently being
// compiled, plus the backward-jump target for continue.
type loopCtx struct {
	continueTarget int
	breakPatches   []int
}

func newScope(enclosing *scope, fnName string) *scope {
	// the function body's own block, opened first, is depth 0
	return &scope{enclosing: enclosing, fnName: fnName, depth: -1}
}

func (s *scope) beginBlock() { s.depth++ }

// endBlock pops every symbol declared at the current depth, returning the
// popped symbols in declaration order so the caller can emit CloseUpVal
// for captured ones (in reverse order) followed by a single PopN.
func (s *scope) endBlock() []*symbol {
	depth := s.depth
	s.depth--
	var popped []*symbol
	i := len(s.symbols)
	for i > 0 && s.symbols[i-1].depth == depth {
		i--
	}
	popped = append(popped, s.symbols[i:]...)
	s.symbols = s.symbols[:i]
	return popped
}

// declare adds name as a new local at the current depth. It reports
// DuplicateLocal if name is already declared at this exact depth.
func (s *scope) declare(name string, pos token.Pos, isConst bool, diags *Diagnostics) *symbol {
	for i := len(s.symbols) - 1; i >= 0; i-- {
		sym := s.symbols[i]
		if sym.depth < s.depth {
			break
		}
		if sym.name == name && sym.depth == s.depth {
			diags.add(DuplicateLocal, pos, "local %q already declared in this scope", name)
			return sym
		}
	}
	sym := &symbol{name: name, depth: s.depth, slot: len(s.symbols), pos: pos, isConst: isConst}
	s.symbols = append(s.symbols, sym)
	if len(s.symbols) > s.maxSeen {
		s.maxSeen = len(s.symbols)
	}
	return sym
}

// resolveLocal looks up name in this scope only (no outer frames),
// searching from the innermost declaration outward, per normal shadowing
// rules. ok is false only if name is not found; a symbol that is found but
// not yet initialized is still returned with ok true (UseBeforeInit
// detection happens at the call site using the returned symbol's
// initialized flag).
func (s *scope) resolveLocal(name string) (idx int, sym *symbol, ok bool) {
	for i := len(s.symbols) - 1; i >= 0; i-- {
		if s.symbols[i].name == name {
			return s.symbols[i].slot, s.symbols[i], true
		}
	}
	return 0, nil, false
}

// addUpvalue records (or dedups) a capture of either an enclosing local
// (isLocal true, index is that local's slot) or an enclosing upvalue
// (isLocal false, index is that upvalue's slot), returning this scope's
// slot index for it.
func (s *scope) addUpvalue(name string, isLocal bool, index int, diags *Diagnostics, pos token.Pos) int {
	for i, uv := range s.upvalues {
		if uv.IsLocal == isLocal && uv.Index == index {
			return i
		}
	}
	if len(s.upvalues) > maxPoolEntries {
		diags.add(TooManyUpValues, pos, "function %q closes over too many variables", s.fnName)
		return len(s.upvalues) - 1
	}
	s.upvalues = append(s.upvalues, UpvalueDesc{IsLocal: isLocal, Index: index})
	s.upvalueNames = append(s.upvalueNames, name)
	return len(s.upvalues) - 1
}

// resolveUpvalue searches enclosing scopes for name, recursively chaining
// upvalue descriptors so a deeply nested function can still reach a local
// several frames up without every intermediate frame re-declaring it.
func (s *scope) resolveUpvalue(name string, diags *Diagnostics, pos token.Pos) (idx int, ok bool) {
	if s.enclosing == nil {
		return 0, false
	}
	if i, sym, ok := s.enclosing.resolveLocal(name); ok {
		sym.captured = true
		return s.addUpvalue(name, true, i, diags, pos), true
	}
	if i, ok := s.enclosing.resolveUpvalue(name, diags, pos); ok {
		return s.addUpvalue(name, false, i, diags, pos), true
	}
	return 0, false
}

// globalTable is the module-level symbol table: a hash map for O(1)
// lookup by name, paired with an explicit declaration-order slice so that
// operations that enumerate all globals (disassembly, diagnostics output)
// are reproducible across runs regardless of the map's internal layout.
type globalTable struct {
	byName *swiss.Map[string, *globalSymbol]
	order  []string
}

func newGlobalTable() *globalTable {
	return &globalTable{byName: swiss.NewMap[string, *globalSymbol](uint32(8))}
}

// declare adds name to the global table. A top-level fn/class (isFunc
// true) may always redeclare, overwriting whatever was there before,
// matching a scripting language's "redefine this behavior" expectation;
// a let/const (isFunc false) may never redeclare, including over an
// existing fn/class of the same name.
func (g *globalTable) declare(name string, pos token.Pos, isConst, isFunc bool, diags *Diagnostics) {
	if existing, ok := g.byName.Get(name); ok {
		if !isFunc || !existing.isFunc {
			diags.add(DuplicateGlobal, pos, "global %q already declared", name)
			return
		}
		g.byName.Put(name, &globalSymbol{name: name, isConst: isConst, isFunc: isFunc, pos: pos})
		return
	}
	g.byName.Put(name, &globalSymbol{name: name, isConst: isConst, isFunc: isFunc, pos: pos})
	g.order = append(g.order, name)
}

func (g *globalTable) lookup(name string) (*globalSymbol, bool) {
	return g.byName.Get(name)
}
