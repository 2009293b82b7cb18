package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBasicBlocksAndCFGSuccessors(t *testing.T) {
	prog := buildOK(t, `int main() {
		int x = 0;
		if (1) { x = 7; } else { x = 9; }
		return x;
	}`)
	fn := findFunction(prog, "main")
	require.NotNil(t, fn)

	blocks := SplitBasicBlocks(fn.Body)
	require.Len(t, blocks, 4) // entry, true, false, end

	cfg := BuildControlFlowGraph(blocks)
	entryKey := blocks[0].Label.String()
	succ := cfg.Successors[entryKey]
	require.Len(t, succ, 2)

	endKey := blocks[len(blocks)-1].Label.String()
	assert.Empty(t, cfg.Successors[endKey]) // ends in Return
}

func TestCFGUsedVariablesCreditsPredecessorBlock(t *testing.T) {
	prog := buildOK(t, `int main() {
		int x = 0;
		if (1) { x = 7; } else { x = 9; }
		return x;
	}`)
	fn := findFunction(prog, "main")
	blocks := SplitBasicBlocks(fn.Body)
	cfg := BuildControlFlowGraph(blocks)

	found := false
	for _, vars := range cfg.UsedVariables {
		if vars["x"] {
			found = true
		}
	}
	assert.True(t, found)
}
