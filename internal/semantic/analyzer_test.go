package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccompiler/internal/parser"
)

func mustParse(t *testing.T, src string) *parser.ParseResult {
	t.Helper()
	res := parser.ParseSource("main.c", src)
	require.True(t, res.OK(), "%+v", res.ParseErrors)
	return &res
}

func TestAnalyzeAcceptsWellFormedProgram(t *testing.T) {
	res := mustParse(t, `
		extern int printf(const char*, ...);
		int add(int a, int b) { return a + b; }
		int main() { return add(1, 2); }
	`)
	a := NewAnalyzer("main.c")
	assert.True(t, a.Analyze(res.Unit))
	assert.Empty(t, a.Errors())
}

func TestAnalyzeRejectsUndefinedVariable(t *testing.T) {
	res := mustParse(t, `int main() { return x; }`)
	a := NewAnalyzer("main.c")
	assert.False(t, a.Analyze(res.Unit))
	require.NotEmpty(t, a.Errors())
	assert.Equal(t, "E0301", a.Errors()[0].Code)
}

func TestAnalyzeRejectsArityMismatch(t *testing.T) {
	res := mustParse(t, `
		int add(int a, int b) { return a + b; }
		int main() { return add(1); }
	`)
	a := NewAnalyzer("main.c")
	assert.False(t, a.Analyze(res.Unit))
	assert.NotEmpty(t, a.Errors())
}

func TestAnalyzeRejectsRedeclaration(t *testing.T) {
	res := mustParse(t, `int main() { int x = 0; int x = 1; return x; }`)
	a := NewAnalyzer("main.c")
	assert.False(t, a.Analyze(res.Unit))
	assert.NotEmpty(t, a.Errors())
}
