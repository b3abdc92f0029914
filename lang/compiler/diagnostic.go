package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/zephyr/lang/token"
)

// Kind classifies a Diagnostic. Most kinds are hard errors that put the
// compiler into panic mode; UnusedSymbol is the only warning-level kind.
type Kind int

//nolint:revive
const (
	Syntax Kind = iota
	DuplicateLocal
	DuplicateGlobal
	UseBeforeInit
	UndeclaredAssignment
	CapacityExceeded
	JumpOutOfRange
	TooManyUpValues
	TooManyArgs
	OrphanLoopControl
	ReturnOutsideFunction
	UnusedSymbol
)

var kindNames = [...]string{
	Syntax:                "syntax error",
	DuplicateLocal:        "duplicate local",
	DuplicateGlobal:       "duplicate global",
	UseBeforeInit:         "use before initialization",
	UndeclaredAssignment:  "assignment to undeclared name",
	CapacityExceeded:      "capacity exceeded",
	JumpOutOfRange:        "jump out of range",
	TooManyUpValues:       "too many captured variables",
	TooManyArgs:           "too many arguments",
	OrphanLoopControl:     "break or continue outside loop",
	ReturnOutsideFunction: "return outside function",
	UnusedSymbol:          "unused symbol",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("unknown diagnostic kind (%d)", int(k))
}

// Severity reports whether a Kind is a warning rather than a hard error.
func (k Kind) Severity() string {
	if k == UnusedSymbol {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single compiler-reported problem, stamped with the
// source position it was detected at.
type Diagnostic struct {
	Kind Kind
	Pos  token.Pos
	Msg  string
}

func (d *Diagnostic) Error() string {
	line, col := d.Pos.LineCol()
	return fmt.Sprintf("%d:%d: %s: %s", line, col, d.Kind.Severity(), d.Msg)
}

// Diagnostics is an ordered collection of Diagnostic values, in the manner
// of go/scanner.ErrorList: compilation keeps going after most errors, and
// the caller inspects the full list at the end instead of aborting on the
// first one.
type Diagnostics []*Diagnostic

func (ds *Diagnostics) add(kind Kind, pos token.Pos, format string, args ...any) {
	*ds = append(*ds, &Diagnostic{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether ds contains at least one non-warning
// diagnostic.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Kind != UnusedSymbol {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by position, matching go/scanner's behavior so
// output is stable and reads top-to-bottom through the source.
func (ds Diagnostics) Sort() {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Pos < ds[j].Pos })
}

func (ds Diagnostics) Error() string {
	switch len(ds) {
	case 0:
		return "no diagnostics"
	case 1:
		return ds[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (and %d more diagnostics)", ds[0].Error(), len(ds)-1)
	return sb.String()
}
