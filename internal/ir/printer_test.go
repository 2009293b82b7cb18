package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintFunctionRendersLabelsAndReturn(t *testing.T) {
	prog := buildOK(t, "int main() { return 0; }")
	fn := findFunction(prog, "main")
	out := PrintFunction(fn)

	assert.Contains(t, out, "function w main ()")
	assert.Contains(t, out, "start_function_main:")
	assert.Contains(t, out, "return w #0")
}

func TestPrintProgramRendersExternAndCall(t *testing.T) {
	prog := buildOK(t, `
		extern int printf(const char*, ...);
		int main() { printf("hi"); return 0; }
	`)
	out := PrintProgram(prog)
	assert.True(t, strings.Contains(out, "extern w printf"))
	assert.Contains(t, out, "call %printf.0")
}
