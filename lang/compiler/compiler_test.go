package compiler_test

import (
	"testing"

	"github.com/mna/zephyr/lang/ast"
	"github.com/mna/zephyr/lang/compiler"
	"github.com/mna/zephyr/lang/token"
	"github.com/stretchr/testify/require"
)

func tok(lexeme string) token.Token { return token.Token{Pos: token.MakePos(1, 1), Lexeme: lexeme} }

func intLit(v int64) *ast.LiteralExpr {
	return &ast.LiteralExpr{Tok: tok("int"), Kind: ast.LitInt, Int: v}
}

func ident(name string) *ast.IdentExpr { return &ast.IdentExpr{Tok: tok(name)} }

func block(stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Start: token.MakePos(1, 1), End: token.MakePos(1, 1), Stmts: stmts}
}

func TestCompileLetAndGlobalReference(t *testing.T) {
	top := block(
		&ast.VarDecl{Name: tok("x"), Value: intLit(5)},
		&ast.ExprStmt{X: ident("x")},
	)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	require.NotNil(t, prog)

	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "get_global")
	require.Contains(t, string(out), "load_imm_byte")
	require.Contains(t, string(out), "define_global")
}

func TestCompileDuplicateGlobalIsError(t *testing.T) {
	top := block(
		&ast.VarDecl{Name: tok("x"), Value: intLit(1)},
		&ast.VarDecl{Name: tok("x"), Value: intLit(2)},
	)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.Nil(t, prog)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.DuplicateGlobal, diags[0].Kind)
}

func TestCompileGlobalFunctionRedeclarationIsAllowed(t *testing.T) {
	fnA := &ast.FunctionDecl{Name: tok("f"), Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: intLit(1)})}
	fnB := &ast.FunctionDecl{Name: tok("f"), Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: intLit(2)})}
	top := block(fnA, fnB)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	require.NotNil(t, prog)
}

func TestCompileGlobalVarOverFunctionIsError(t *testing.T) {
	fnA := &ast.FunctionDecl{Name: tok("f"), Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: intLit(1)})}
	top := block(fnA, &ast.VarDecl{Name: tok("f"), Value: intLit(2)})
	_, diags := compiler.NewCompiler().Compile(top)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.DuplicateGlobal, diags[0].Kind)
}

func TestCompileGlobalFunctionOverVarIsError(t *testing.T) {
	fnA := &ast.FunctionDecl{Name: tok("f"), Body: block(&ast.ReturnStmt{Tok: tok("return"), Value: intLit(1)})}
	top := block(&ast.VarDecl{Name: tok("f"), Value: intLit(1)}, fnA)
	_, diags := compiler.NewCompiler().Compile(top)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.DuplicateGlobal, diags[0].Kind)
}

func TestCompileAssignToUndeclaredNameIsError(t *testing.T) {
	top := block(
		&ast.ExprStmt{X: &ast.VarReassignmentExpr{Target: tok("y"), Op: token.ILLEGAL, Value: intLit(1)}},
	)
	_, diags := compiler.NewCompiler().Compile(top)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.UndeclaredAssignment, diags[0].Kind)
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	top := block(&ast.BreakStmt{Tok: tok("break")})
	_, diags := compiler.NewCompiler().Compile(top)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.OrphanLoopControl, diags[0].Kind)
}

func TestCompileReturnOutsideFunctionIsError(t *testing.T) {
	top := block(&ast.ReturnStmt{Tok: tok("return")})
	_, diags := compiler.NewCompiler().Compile(top)
	require.True(t, diags.HasErrors())
	require.Equal(t, compiler.ReturnOutsideFunction, diags[0].Kind)
}

func TestCompileLocalScopeIsPoppedAtBlockEnd(t *testing.T) {
	top := block(
		&ast.IfStmt{
			Cond: &ast.LiteralExpr{Tok: tok("true"), Kind: ast.LitBool, Bool: true},
			Then: block(&ast.VarDecl{Name: tok("z"), Value: intLit(1)}),
		},
	)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "pop")
}

func TestCompileFunctionDeclAndCall(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name: tok("double"),
		Params: []*ast.Parameter{
			{Name: tok("n")},
		},
		Body: block(&ast.ReturnStmt{
			Tok: tok("return"),
			Value: &ast.BinaryExpr{
				Left: ident("n"), Op: token.ADD, Right: ident("n"),
			},
		}),
	}
	top := block(
		fn,
		&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("double"), Args: []ast.Expr{intLit(4)}}},
	)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "function: double")
	require.Contains(t, string(out), "make_closure")
	require.Contains(t, string(out), "call 1")
}

func TestCompileForLoopDesugarsToHasNextNext(t *testing.T) {
	top := block(
		&ast.ForStmt{
			Var:      tok("item"),
			Iterable: ident("items"),
			Body:     block(&ast.ExprStmt{X: ident("item")}),
		},
	)
	// `items` resolves as a global reference since it is never declared;
	// that is fine, the for-loop's own desugaring is what's under test.
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "has_next")
	require.Contains(t, string(out), "next")
	require.Contains(t, string(out), "loop_jump")
}

func TestCompileCompoundPropertyAssignmentDupsReceiverOnce(t *testing.T) {
	top := block(
		&ast.ExprStmt{X: &ast.ObjectSetExpr{
			Target: ident("obj"),
			Name:   tok("count"),
			Op:     token.ADD_ASSIGN,
			Value:  intLit(1),
		}},
	)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())
	out, err := compiler.Dasm(prog)
	require.NoError(t, err)
	require.Contains(t, string(out), "dup")
}

func TestAsmDasmRoundTrip(t *testing.T) {
	top := block(
		&ast.VarDecl{Name: tok("x"), Value: intLit(42)},
		&ast.ExprStmt{X: ident("x")},
	)
	prog, diags := compiler.NewCompiler().Compile(top)
	require.False(t, diags.HasErrors())

	text, err := compiler.Dasm(prog)
	require.NoError(t, err)

	reparsed, err := compiler.Asm(text)
	require.NoError(t, err)

	again, err := compiler.Dasm(reparsed)
	require.NoError(t, err)
	require.Equal(t, string(text), string(again))
}
