package compiler_test

import (
	"testing"

	"github.com/mna/zephyr/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestAsm(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this err string, no error if empty
	}{
		{"empty", ``, "expected program section"},
		{"not program", `function:`, "expected program section"},
		{"missing top-level function", `program:`, "expected top-level function"},

		{"invalid function header", `
				program:
					function: Top
			`, "invalid function header"},

		{"minimally valid", `
				program:
					function: Top 0 0 0 0
						code:
			`, ""},

		{"with code", `
				program:
					function: Top 0 0 0 0
						code:
							load_0i
							pop
							return
			`, ""},

		{"forward jump by instruction index", `
				program:
					function: Top 0 0 0 0
						code:
							load_true
							jump_if_false_pop 3
							load_0i
							pop
							return
			`, ""},

		{"invalid opcode", `
				program:
					function: Top 0 0 0 0
						code:
							foobar
			`, "invalid opcode: foobar"},

		{"jump target out of range", `
				program:
					function: Top 0 0 0 0
						code:
							jump 5
							return
			`, "jump target 5 out of range"},

		{"invalid int constant", `
				program:
					function: Top 0 0 0 0
						constants:
							int abc
						code:
							return
			`, "invalid int constant"},

		{"invalid string constant", `
				program:
					function: Top 0 0 0 0
						constants:
							string "a
						code:
							return
			`, "invalid string constant"},

		{"upvalue count mismatch", `
				program:
					function: Top 0 0 1 0
						code:
							return
			`, "declared 1 upvalues, found 0"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := compiler.Asm([]byte(c.in))
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestDasmMissingTopLevelFunction(t *testing.T) {
	_, err := compiler.Dasm(&compiler.Program{})
	require.ErrorContains(t, err, "no top-level function")
}

func TestDasmUnsupportedConstantType(t *testing.T) {
	_, err := compiler.Dasm(&compiler.Program{
		Top: &compiler.FunctionProto{Constants: []any{true}},
	})
	require.ErrorContains(t, err, "unsupported constant type")
}
