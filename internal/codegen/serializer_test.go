package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeProgramOrdersSectionsAndDirectives(t *testing.T) {
	globals := &SymbolTable{
		FunctionLabels: map[string]string{"main": "_main", "printf": "_printf"},
		IsExtern:       map[string]bool{"main": false, "printf": true},
		stringIDs:      map[string]int{},
	}
	globals.InternString("hello\n")

	instrs := map[string][]Instruction{
		"main": {
			LabelInstr("_main"),
			MovInstr(FunctionArgRegister(0, 4), ImmediateVal(0)),
			BranchInstr(ReturnBranch()),
		},
	}

	out := SerializeProgram(globals, []string{"printf", "main"}, instrs)

	assertBefore := func(a, b string) {
		assert.Less(t, indexOf(out, a), indexOf(out, b))
	}

	assert.Contains(t, out, ".section __TEXT,__text")
	assert.Contains(t, out, ".extern _printf")
	assert.Contains(t, out, ".globl _main")
	assert.Contains(t, out, "_main:")
	assert.Contains(t, out, "\tret")
	assert.Contains(t, out, ".section __TEXT,__cstring")
	assertBefore(".section __TEXT,__text", ".section __TEXT,__cstring")
	assertBefore(".globl _main", "_main:")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
