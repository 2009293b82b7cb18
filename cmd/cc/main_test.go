package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccompiler/internal/ir"
	"ccompiler/internal/parser"
	"ccompiler/internal/semantic"
)

func compileToProgram(t *testing.T, src string) *ir.Program {
	t.Helper()
	result := parser.ParseSource("t.c", src)
	require.True(t, result.OK())

	analyzer := semantic.NewAnalyzer("t.c")
	require.True(t, analyzer.Analyze(result.Unit))

	builder := ir.NewBuilder(analyzer.Table(), "t.c")
	program := builder.BuildProgram(result.Unit)
	require.Empty(t, builder.Errors())
	return program
}

func TestAssembleProgramEmitsPrologueAndReturn(t *testing.T) {
	program := compileToProgram(t, "int main() { return 5; }")
	out, err := assembleProgram(program)
	require.NoError(t, err)

	assert.Contains(t, out, ".section __TEXT,__text")
	assert.Contains(t, out, ".globl _main")
	assert.Contains(t, out, "_main:")
	assert.Contains(t, out, "ret")
}

func TestEmitIRSelectsTextualSurface(t *testing.T) {
	program := compileToProgram(t, "int main() { return 5; }")
	out := ir.PrintProgram(program)
	assert.True(t, strings.HasPrefix(out, "function w main"))
}
