package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantFoldingReplacesQuadrupleWithLiteral(t *testing.T) {
	prog := buildOK(t, `int main() { int x = 2 + 3; return x; }`)
	fn := findFunction(prog, "main")

	(&ConstantFolding{}).Apply(prog)

	var sawFoldedFive bool
	for _, s := range fn.Body {
		if s.Kind == SsaAssignment && s.Source.Kind == AddrConstNumeric && s.Source.Numeric == 5 {
			sawFoldedFive = true
		}
	}
	assert.True(t, sawFoldedFive)
}

func TestConstantFoldingInlinesIntoReturnAndBranch(t *testing.T) {
	prog := buildOK(t, `int main() {
		int x = 2 + 3;
		if (x) { return 1; }
		return 0;
	}`)
	fn := findFunction(prog, "main")

	(&ConstantFolding{}).Apply(prog)

	var sawFoldedBranch bool
	for _, s := range fn.Body {
		if s.Kind == SsaBranch && s.BranchCond.Kind == AddrConstNumeric && s.BranchCond.Numeric == 5 {
			sawFoldedBranch = true
		}
	}
	assert.True(t, sawFoldedBranch, "branch condition should be folded to the constant computed for x")
}

func TestDeadCodeEliminationDropsUnusedAssignment(t *testing.T) {
	prog := buildOK(t, `int main() { int x = 1 + 2; return 0; }`)
	fn := findFunction(prog, "main")
	before := len(fn.Body)

	(&DeadCodeElimination{}).Apply(prog)

	assert.Less(t, len(fn.Body), before)
}

func TestO1PipelineDropsAllPhis(t *testing.T) {
	prog := buildOK(t, `int main() {
		int x = 0;
		if (1) { x = 7; } else { x = 9; }
		return x;
	}`)
	fn := findFunction(prog, "main")
	require.NotNil(t, fn)

	NewO1Pipeline().Run(prog)

	for _, s := range fn.Body {
		assert.NotEqual(t, SsaPhi, s.Kind)
		if addr, ok := s.DefinedAddress(); ok && addr.Kind == AddrSource {
			assert.Equal(t, 0, addr.Version)
		}
	}
}
