package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccompiler/internal/ast"
)

func TestParseMinimalMain(t *testing.T) {
	res := ParseSource("main.c", "int main() { return 0; }")
	require.True(t, res.OK())
	require.Len(t, res.Unit.Items, 1)

	fn := res.Unit.Items[0].Function
	require.NotNil(t, fn)
	assert.Equal(t, "main", fn.Name.Value)
	assert.Equal(t, ast.TypeInt, fn.ReturnType)
	require.Len(t, fn.Body.Stmts, 1)
	assert.Equal(t, ast.StmtReturn, fn.Body.Stmts[0].Kind)
}

func TestParseWhileLoopWithCompoundAssignment(t *testing.T) {
	src := `int main() {
		int i = 0;
		int s = 0;
		while (i < 10) {
			s += i;
			i += 1;
		}
		return s;
	}`
	res := ParseSource("main.c", src)
	require.True(t, res.OK())

	fn := res.Unit.Items[0].Function
	require.Len(t, fn.Body.Stmts, 4)
	whileStmt := fn.Body.Stmts[2]
	require.Equal(t, ast.StmtWhile, whileStmt.Kind)
	require.Equal(t, ast.StmtCompound, whileStmt.Body.Kind)
	require.Len(t, whileStmt.Body.Stmts, 2)
	assert.Equal(t, ast.AssignAddEq, whileStmt.Body.Stmts[0].Expr.AssignOp)
}

func TestParseExternVariadicPrototype(t *testing.T) {
	src := `extern int printf(const char*, ...);`
	res := ParseSource("main.c", src)
	require.True(t, res.OK())

	decl := res.Unit.Items[0].Extern
	require.NotNil(t, decl)
	assert.Equal(t, "printf", decl.Name.Value)
	require.Len(t, decl.Params, 2)
	assert.True(t, decl.Params[1].Variadic)
	assert.Equal(t, 1, decl.Params[0].Declarator.PointerN)
}

func TestParseIfElse(t *testing.T) {
	src := `int main() {
		int x = 0;
		if (1) { x = 7; } else { x = 9; }
		return x;
	}`
	res := ParseSource("main.c", src)
	require.True(t, res.OK())

	fn := res.Unit.Items[0].Function
	ifStmt := fn.Body.Stmts[1]
	require.Equal(t, ast.StmtIf, ifStmt.Kind)
	require.NotNil(t, ifStmt.Else)
}

func TestSyntaxErrorIsReportedNotPanicked(t *testing.T) {
	res := ParseSource("main.c", "int main( { return 0; }")
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.ParseErrors)
}
