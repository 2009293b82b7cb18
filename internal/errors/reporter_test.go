package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ccompiler/internal/ast"
)

func TestFormatErrorIncludesCodeAndMessage(t *testing.T) {
	reporter := NewErrorReporter("main.c", "int main() {\n  return x;\n}\n")
	err := CompilerError{
		Level:    Error,
		Code:     ErrorUndefinedVariable,
		Message:  "undefined variable 'x'",
		Position: ast.Position{Filename: "main.c", Line: 2, Column: 10},
		Length:   1,
	}

	out := reporter.FormatError(err)

	assert.Contains(t, out, ErrorUndefinedVariable)
	assert.Contains(t, out, "undefined variable 'x'")
	assert.Contains(t, out, "main.c:2:10")
}

func TestCategoryRanges(t *testing.T) {
	assert.Equal(t, "Lexical", Category(ErrorLexical))
	assert.Equal(t, "Syntax", Category(ErrorSyntax))
	assert.Equal(t, "Structural", Category(ErrorUndefinedVariable))
	assert.Equal(t, "Type/Width", Category(ErrorTypeWidth))
	assert.Equal(t, "Optimizer invariant", Category(ErrorOptimizerInvariant))
	assert.Equal(t, "Allocator invariant", Category(ErrorAllocatorInvariant))
	assert.Equal(t, "Emitter invariant", Category(ErrorEmitterInvariant))
	assert.Equal(t, "I/O", Category(ErrorIO))
}
