package compiler_test

import (
	"fmt"
	"testing"

	"github.com/mna/zephyr/lang/ast"
	"github.com/mna/zephyr/lang/compiler"
	"github.com/mna/zephyr/lang/token"
	"github.com/stretchr/testify/require"
)

func TestCompileFunctionWithDefaultParamsEmitsBindDefaults(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name: tok("greet"),
		Params: []*ast.Parameter{
			{Name: tok("name")},
			{Name: tok("greeting"), Default: &ast.LiteralExpr{Tok: tok("str"), Kind: ast.LitString, Str: "hi"}},
		},
		Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: ident("greeting")}),
	}
	top := block(fn)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "bind_defaults 1")
}

func TestCompileRecursiveGlobalFunctionReferencesOwnName(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name: tok("fact"),
		Params: []*ast.Parameter{
			{Name: tok("n")},
		},
		Body: block(&ast.ReturnStmt{
			Tok: tok("return"),
			Value: &ast.CallExpr{
				Callee: ident("fact"),
				Args:   []ast.Expr{ident("n")},
			},
		}),
	}
	top := block(fn)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	require.NotNil(t, prog)
}

func TestCompileNestedFunctionClosesOverOuterLocal(t *testing.T) {
	inner := &ast.FunctionDecl{
		Name: tok("inner"),
		Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: ident("x")}),
	}
	outer := &ast.FunctionDecl{
		Name: tok("outer"),
		Body: block(
			&ast.VarDecl{Name: tok("x"), Value: intLit(1)},
			inner,
			&ast.ReturnStmt{Tok: tok("return"), Value: ident("inner")},
		),
	}
	top := block(outer)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "upvalues:")
	require.Contains(t, string(out), "local 0")
}

func TestCompileClosureWith256UpvaluesSelectsLargeForm(t *testing.T) {
	const n = 256
	outerDecls := make([]ast.Stmt, 0, n+1)
	innerStmts := make([]ast.Stmt, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("x%d", i)
		outerDecls = append(outerDecls, &ast.VarDecl{Name: tok(name), Value: intLit(1)})
		innerStmts = append(innerStmts, &ast.ExprStmt{X: ident(name)})
	}
	inner := &ast.FunctionDecl{Name: tok("inner"), Body: block(innerStmts...)}
	outer := &ast.FunctionDecl{
		Name: tok("outer"),
		Body: block(append(outerDecls, inner, &ast.ReturnStmt{Tok: tok("return"), Value: ident("inner")})...),
	}
	top := block(outer)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "make_closure_large")
}

func TestCompileTooManyDefaultedParamsIsError(t *testing.T) {
	params := make([]*ast.Parameter, 0, 257)
	for i := 0; i < 257; i++ {
		params = append(params, &ast.Parameter{
			Name:    tok(fmt.Sprintf("p%d", i)),
			Default: &ast.LiteralExpr{Tok: tok("int"), Kind: ast.LitInt, Int: int64(i)},
		})
	}
	fn := &ast.FunctionDecl{
		Name:   tok("many"),
		Params: params,
		Body:   block(&ast.ReturnStmt{Tok: tok("return")}),
	}
	top := block(fn)
	_, diags := compiler.NewCompiler().Compile(top)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.CapacityExceeded, diags[0].Kind)
}

func TestCompileClassDeclEmitsMakeClass(t *testing.T) {
	method := &ast.FunctionDecl{
		Name: tok("speak"),
		Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: intLit(1)}),
	}
	cls := &ast.ClassDecl{
		ClassPos: token.MakePos(1, 1),
		Name:     tok("Dog"),
		Methods:  []*ast.FunctionDecl{method},
	}
	top := block(cls)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "function: speak")
	require.Contains(t, string(out), "make_class")
}
