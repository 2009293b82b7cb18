package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphvizFunctionRendersBlocksAndBranchEdges(t *testing.T) {
	fn := &FunctionDef{
		Name: "f", ReturnWidth: Word, HasReturn: true,
		Body: []Ssa{
			MakeLabel(SourceLabel("start_function_f")),
			MakeBranch(Word, NumericAddr(1), SourceLabel("Lt"), SourceLabel("Lf")),
			MakeLabel(SourceLabel("Lt")),
			MakeReturn(&CallDest{Addr: NumericAddr(1), Width: Word}),
			MakeLabel(SourceLabel("Lf")),
			MakeReturn(&CallDest{Addr: NumericAddr(0), Width: Word}),
		},
	}
	out := GraphvizFunction(fn)

	assert.Contains(t, out, "digraph SSA {")
	assert.Contains(t, out, `start_function_f -> Lt[label="true"];`)
	assert.Contains(t, out, `start_function_f -> Lf[label="false"];`)
}
