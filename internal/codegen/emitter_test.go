package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccompiler/internal/ir"
)

func render(instrs []Instruction) string {
	var b strings.Builder
	for _, i := range instrs {
		b.WriteString(i.String())
		b.WriteString("\n")
	}
	return b.String()
}

func TestEmitFunctionProducesPrologueAndEpilogue(t *testing.T) {
	fn := &ir.FunctionDef{
		Name: "f", ReturnWidth: ir.Word, HasReturn: true,
		Body: []ir.Ssa{
			ir.MakeLabel(ir.SourceLabel("start_function_f")),
			ir.MakeReturn(&ir.CallDest{Addr: ir.NumericAddr(5), Width: ir.Word}),
		},
	}
	globals := &SymbolTable{FunctionLabels: map[string]string{}, IsExtern: map[string]bool{}}
	e := NewEmitter(globals)
	instrs, err := e.EmitFunction(fn)
	require.NoError(t, err)
	out := render(instrs)

	assert.Contains(t, out, "stp fp, lr, [sp, #-16]!")
	assert.Contains(t, out, "mov fp, sp")
	assert.Contains(t, out, "return_f:")
	assert.Contains(t, out, "ret")
	assert.Contains(t, out, "mov w0, #5")
}

func TestEmitFunctionPrecolorsParameterIntoArgumentRegister(t *testing.T) {
	fn := &ir.FunctionDef{
		Name: "add_one", ReturnWidth: ir.Word, HasReturn: true,
		Parameters: []ir.Parameter{{Name: "x", Width: ir.Word}},
		Body: []ir.Ssa{
			ir.MakeLabel(ir.SourceLabel("start_function_add_one")),
			ir.MakeReturn(&ir.CallDest{Addr: ir.SourceAddr("x", 0), Width: ir.Word}),
		},
	}
	globals := &SymbolTable{FunctionLabels: map[string]string{}, IsExtern: map[string]bool{}}
	e := NewEmitter(globals)
	instrs, err := e.EmitFunction(fn)
	require.NoError(t, err)
	out := render(instrs)

	assert.Contains(t, out, "mov w0, w0")
}

func TestEmitCallMarshalsNonVariadicArgumentAndReturnsValue(t *testing.T) {
	dest := ir.TempAddr(1)
	fn := &ir.FunctionDef{
		Name: "caller", ReturnWidth: ir.Word, HasReturn: true,
		Body: []ir.Ssa{
			ir.MakeLabel(ir.SourceLabel("start_function_caller")),
			ir.MakeCall(&ir.CallDest{Addr: dest, Width: ir.Word}, ir.SourceAddr("helper", 0), []ir.CallParam{
				{Number: 0, Value: ir.NumericAddr(7), Width: ir.Word},
			}),
			ir.MakeReturn(&ir.CallDest{Addr: dest, Width: ir.Word}),
		},
	}
	globals := &SymbolTable{FunctionLabels: map[string]string{}, IsExtern: map[string]bool{}}
	e := NewEmitter(globals)
	instrs, err := e.EmitFunction(fn)
	require.NoError(t, err)
	out := render(instrs)

	assert.Contains(t, out, "mov w0, #7")
	assert.Contains(t, out, "bl _helper")
}
