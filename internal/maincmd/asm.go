package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/zephyr/lang/compiler"
)

// Asm reads one or more textual assembly (.zasm) files, assembles each
// into a Program, and prints its canonical disassembly back to stdout.
// This exercises the full Asm->Dasm round trip, which is otherwise only
// checked in tests.
func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if c.verbose {
			fmt.Fprintf(stdio.Stderr, "assembling %s\n", path)
		}
		if err := asmFile(stdio, path); err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
	}
	return nil
}

func asmFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := compiler.Asm(src)
	if err != nil {
		return err
	}
	out, err := compiler.Dasm(prog)
	if err != nil {
		return err
	}
	_, err = stdio.Stdout.Write(out)
	return err
}

// Dasm reads a program's textual assembly form from stdin and prints its
// canonical disassembly to stdout, the same operation Asm performs
// per-file but for a single piped source - useful in a shell pipeline
// that already produced assembly text (e.g. from another tool's -dasm
// output).
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if err := ctx.Err(); err != nil {
		return printError(stdio, err)
	}
	src, err := io.ReadAll(stdio.Stdin)
	if err != nil {
		return printError(stdio, err)
	}
	prog, err := compiler.Asm(src)
	if err != nil {
		return printError(stdio, err)
	}
	out, err := compiler.Dasm(prog)
	if err != nil {
		return printError(stdio, err)
	}
	_, err = stdio.Stdout.Write(out)
	return err
}
