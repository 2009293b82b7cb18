package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgramRoundTripsSimpleFunction(t *testing.T) {
	fn := &FunctionDef{
		Name: "main", ReturnWidth: Word, HasReturn: true,
		Body: []Ssa{
			MakeLabel(SourceLabel("start_function_main")),
			MakeAssignment(TempAddr(1), NumericAddr(42), Word),
			MakeReturn(&CallDest{Addr: TempAddr(1), Width: Word}),
		},
	}
	prog := &Program{Items: []ToplevelItem{{Kind: ToplevelFunction, Function: fn}}}
	text := PrintProgram(prog)

	parsed, err := ParseProgram(text)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)

	got := parsed.Items[0].Function
	assert.Equal(t, "main", got.Name)
	assert.Equal(t, Word, got.ReturnWidth)
	require.Len(t, got.Body, 3)
	assert.Equal(t, SsaReturn, got.Body[2].Kind)
	assert.Equal(t, TempAddr(1), got.Body[2].ReturnValue.Addr)
}

func TestParseProgramRoundTripsQuadrupleAndPhi(t *testing.T) {
	right := SourceAddr("y", 1)
	fn := &FunctionDef{
		Name: "add", ReturnWidth: Word, HasReturn: true,
		Parameters: []Parameter{{Name: "x", Width: Word}, {Name: "y", Width: Word}},
		Body: []Ssa{
			MakeLabel(SourceLabel("start_function_add")),
			MakeQuadruple(Quadruple{Width: Word, Dest: TempAddr(1), Op: OpPlus, Left: SourceAddr("x", 0), Right: &right}),
			MakePhi(Phi{Dest: SourceAddr("z", 1), Width: Word, Merging: []PhiArm{
				{Value: TempAddr(1), From: SourceLabel("start_function_add")},
			}}),
			MakeReturn(&CallDest{Addr: SourceAddr("z", 1), Width: Word}),
		},
	}
	prog := &Program{Items: []ToplevelItem{{Kind: ToplevelFunction, Function: fn}}}
	text := PrintProgram(prog)

	parsed, err := ParseProgram(text)
	require.NoError(t, err)
	got := parsed.Items[0].Function
	require.Len(t, got.Body, 4)
	assert.Equal(t, SsaQuadruple, got.Body[1].Kind)
	assert.Equal(t, OpPlus, got.Body[1].Quad.Op)
	assert.Equal(t, SsaPhi, got.Body[2].Kind)
	assert.Len(t, got.Body[2].Phi.Merging, 1)
}

func TestParseProgramRoundTripsVariadicCall(t *testing.T) {
	fn := &FunctionDef{
		Name: "main", ReturnWidth: Word, HasReturn: true,
		Body: []Ssa{
			MakeLabel(SourceLabel("start_function_main")),
			MakeCall(&CallDest{Addr: TempAddr(1), Width: Word}, SourceAddr("printf", 0), []CallParam{
				{Number: 0, Value: StringAddr("fmt"), Width: Long, IsVariadic: false},
				{Number: 1, Value: NumericAddr(5), Width: Long, IsVariadic: true},
			}),
			MakeReturn(&CallDest{Addr: NumericAddr(0), Width: Word}),
		},
	}
	prog := &Program{Items: []ToplevelItem{{Kind: ToplevelFunction, Function: fn}}}
	text := PrintProgram(prog)

	parsed, err := ParseProgram(text)
	require.NoError(t, err)
	got := parsed.Items[0].Function
	require.Len(t, got.Body, 3)
	require.Equal(t, SsaCall, got.Body[1].Kind)
	require.Len(t, got.Body[1].CallParams, 2)
	assert.False(t, got.Body[1].CallParams[0].IsVariadic)
	assert.True(t, got.Body[1].CallParams[1].IsVariadic)
	assert.Equal(t, NumericAddr(5), got.Body[1].CallParams[1].Value)
}
