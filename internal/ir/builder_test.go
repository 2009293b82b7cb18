package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccompiler/internal/parser"
	"ccompiler/internal/semantic"
)

func buildOK(t *testing.T, src string) *Program {
	t.Helper()
	res := parser.ParseSource("main.c", src)
	require.True(t, res.OK(), "%+v", res.ParseErrors)

	a := semantic.NewAnalyzer("main.c")
	require.True(t, a.Analyze(res.Unit), "%+v", a.Errors())

	b := NewBuilder(a.Table(), "main.c")
	prog := b.BuildProgram(res.Unit)
	require.Empty(t, b.Errors())
	return prog
}

func findFunction(prog *Program, name string) *FunctionDef {
	for _, item := range prog.Items {
		if item.Kind == ToplevelFunction && item.Function.Name == name {
			return item.Function
		}
	}
	return nil
}

func TestBuildReturnsConstant(t *testing.T) {
	prog := buildOK(t, "int main() { return 0; }")
	fn := findFunction(prog, "main")
	require.NotNil(t, fn)
	require.NotEmpty(t, fn.Body)
	assert.Equal(t, SsaLabel, fn.Body[0].Kind)
	last := fn.Body[len(fn.Body)-1]
	assert.Equal(t, SsaReturn, last.Kind)
	require.NotNil(t, last.ReturnValue)
	assert.Equal(t, int64(0), last.ReturnValue.Addr.Numeric)
}

func TestBuildIfElsePlacesPhiAtJoin(t *testing.T) {
	prog := buildOK(t, `int main() {
		int x = 0;
		if (1) { x = 7; } else { x = 9; }
		return x;
	}`)
	fn := findFunction(prog, "main")
	require.NotNil(t, fn)

	var phis []*Phi
	for _, s := range fn.Body {
		if s.Kind == SsaPhi {
			phis = append(phis, s.Phi)
		}
	}
	require.Len(t, phis, 1)
	assert.Equal(t, "x", phis[0].Dest.Name)
	require.Len(t, phis[0].Merging, 2)
}

func TestBuildWhileLoopEmitsCondStartEndLabelsAndPhis(t *testing.T) {
	prog := buildOK(t, `int main() {
		int i = 0;
		int s = 0;
		while (i < 10) {
			s += i;
			i += 1;
		}
		return s;
	}`)
	fn := findFunction(prog, "main")
	require.NotNil(t, fn)

	var labelCount, branchCount, jumpCount, phiCount int
	for _, s := range fn.Body {
		switch s.Kind {
		case SsaLabel:
			labelCount++
		case SsaBranch:
			branchCount++
		case SsaJump:
			jumpCount++
		case SsaPhi:
			phiCount++
		}
	}
	assert.Equal(t, 1, branchCount)
	assert.Equal(t, 1, jumpCount)
	// entry label + L_cond + L_start + L_end
	assert.Equal(t, 4, labelCount)
	// two loop-carried vars (i, s): one phi each at L_cond, one each at L_end
	assert.Equal(t, 4, phiCount)
}

func TestBuildCallMarshalsVariadicArgument(t *testing.T) {
	prog := buildOK(t, `
		extern int printf(const char*, ...);
		int main() {
			printf("%d\n", 42);
			return 0;
		}
	`)
	fn := findFunction(prog, "main")
	require.NotNil(t, fn)

	var call *Ssa
	for i := range fn.Body {
		if fn.Body[i].Kind == SsaCall {
			call = &fn.Body[i]
			break
		}
	}
	require.NotNil(t, call)
	require.Len(t, call.CallParams, 2)
	assert.False(t, call.CallParams[0].IsVariadic)
	assert.True(t, call.CallParams[1].IsVariadic)
	assert.Equal(t, Word, call.CallParams[1].Width)
}
