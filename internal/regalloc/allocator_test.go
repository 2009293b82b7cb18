package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccompiler/internal/ir"
)

func buildSimpleFunction() *ir.FunctionDef {
	t1 := ir.TempAddr(1)
	t2 := ir.TempAddr(2)
	t3 := ir.TempAddr(3)
	return &ir.FunctionDef{
		Name: "f", ReturnWidth: ir.Word, HasReturn: true,
		Body: []ir.Ssa{
			ir.MakeLabel(ir.SourceLabel("start_function_f")),
			ir.MakeAssignment(t1, ir.NumericAddr(1), ir.Word),
			ir.MakeAssignment(t2, ir.NumericAddr(2), ir.Word),
			ir.MakeQuadruple(ir.Quadruple{Width: ir.Word, Dest: t3, Op: ir.OpPlus, Left: t1, Right: &t2}),
			ir.MakeReturn(&ir.CallDest{Addr: t3, Width: ir.Word}),
		},
	}
}

func TestAllocateAssignsDistinctRegistersToOverlappingLifetimes(t *testing.T) {
	fn := buildSimpleFunction()
	liveness := ir.ComputeLiveness(fn)

	alloc, err := Allocate(fn, liveness, []Register{0, 1, 2}, nil)
	require.NoError(t, err)

	locT1, ok := alloc.LocationOf(ir.TempAddr(1), 3)
	require.True(t, ok)
	locT2, ok := alloc.LocationOf(ir.TempAddr(2), 3)
	require.True(t, ok)
	assert.NotEqual(t, locT1, locT2)
}

func TestAllocateSpillsWhenRegistersExhausted(t *testing.T) {
	fn := buildSimpleFunction()
	liveness := ir.ComputeLiveness(fn)

	alloc, err := Allocate(fn, liveness, []Register{0}, nil)
	require.NoError(t, err)
	assert.Greater(t, alloc.SpillBytes, 0)
}

func TestPrecoloredParameterHoldsItsRegisterForFullBody(t *testing.T) {
	fn := buildSimpleFunction()
	fn.Parameters = []ir.Parameter{{Name: "p", Width: ir.Word}}
	paramAddr := ir.SourceAddr("p", 0)
	fn.Body = append([]ir.Ssa{}, fn.Body...)

	liveness := ir.ComputeLiveness(fn)
	alloc, err := Allocate(fn, liveness, []Register{1, 2, 3}, map[ir.Address]Register{paramAddr: 0})
	require.NoError(t, err)

	loc, ok := alloc.LocationOf(paramAddr, len(fn.Body)-1)
	require.True(t, ok)
	assert.Equal(t, Register(0), loc.Reg)
}
