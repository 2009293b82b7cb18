package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Round-trip parser for the textual IR surface of spec.md §6 (property
// P5: parsing a printed program must reproduce the same Program). Grounded
// on the teacher's grammar/lexer.go and grammar/parser.go — a fresh
// participle.Build[...] targeting this IR's own small grammar, not the
// teacher's contract language.

var irLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"String", `s'[^']*'`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `-?[0-9]+`, nil},
		{"Ellipsis", `\.\.\.`, nil},
		{"Punct", `[%@#(),:{}.=\[\]+\-*/<>]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

type irProgram struct {
	Items []*irTopItem `@@*`
}

type irTopItem struct {
	Extern   *irExtern  `  @@`
	Function *irFunc    `| @@`
}

type irExtern struct {
	Width  string      `"extern" @("b" | "w" | "s" | "l")`
	Name   string      `@Ident`
	Params []*irExternParam `"(" [ @@ { "," @@ } ] ")"`
}

type irExternParam struct {
	Variadic bool   `( @Ellipsis`
	Width    string `  | @("b" | "w" | "s" | "l") )`
}

type irFunc struct {
	Width  string      `"function" @("b" | "w" | "s" | "l")`
	Name   string      `@Ident`
	Params []*irParam  `"(" [ @@ { "," @@ } ] ")" "{"`
	Body   []*irStmt   `@@*`
	Close  string      `"}"`
}

type irParam struct {
	Width string `@("b" | "w" | "s" | "l")`
	Name  string `"%" @Ident`
}

type irOperand struct {
	Numeric *string        `  "#" @Int`
	Str     *string        `| @String`
	Named   *irNamedOperand `| "%" @@`
}

type irNamedOperand struct {
	Ident   string  `@Ident`
	Version *string `[ "." @Int ]`
}

type irLabelRef struct {
	Name string `"@" @Ident`
}

type irPhiArm struct {
	Value irOperand  `"[" @@`
	From  irLabelRef `"," @@ "]"`
}

type irCallArg struct {
	Variadic bool      `[ @Ellipsis ]`
	Width    string    `@("b" | "w" | "s" | "l")`
	Value    irOperand `@@`
}

type irStmt struct {
	Label      *irLabelStmt      `  @@`
	Jump       *irJumpStmt       `| @@`
	Branch     *irBranchStmt     `| @@`
	Phi        *irPhiStmt        `| @@`
	CallStmt   *irCallStmt       `| @@`
	ReturnStmt *irReturnStmt     `| @@`
	Assign     *irAssignStmt     `| @@`
}

type irLabelStmt struct {
	Name string `"@" @Ident ":"`
}

type irJumpStmt struct {
	Target irLabelRef `"jump" @@`
}

type irBranchStmt struct {
	Width string     `"branch" @("b" | "w" | "s" | "l")`
	Cond  irOperand  `@@ ":"`
	True  irLabelRef `@@`
	False irLabelRef `@@`
}

type irPhiStmt struct {
	Dest  irOperand  `@@ "="`
	Width string     `@("b" | "w" | "s" | "l")`
	Arms  []*irPhiArm `"phi" @@ { "," @@ }`
}

type irCallStmt struct {
	Dest      *irOperand   `[ @@ "="`
	DestWidth string       `  @("b" | "w" | "s" | "l") ]`
	Func      irOperand    `"call" @@`
	Args      []*irCallArg `"(" [ @@ { "," @@ } ] ")"`
}

type irReturnStmt struct {
	Width string     `"return" [ @("b" | "w" | "s" | "l")`
	Value *irOperand `  @@ ]`
}

type irAssignStmt struct {
	Dest   irOperand  `@@ "="`
	Width  string     `@("b" | "w" | "s" | "l")`
	Left   irOperand  `@@`
	Op     *string    `[ @("+" | "-" | "*" | "/" | ">" | "<" | "=" "=") `
	Right  *irOperand `    @@ ]`
}

var irParser = participle.MustBuild[irProgram](
	participle.Lexer(irLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(6),
)

// ParseProgram parses the textual IR surface produced by PrintProgram back
// into a Program.
func ParseProgram(source string) (*Program, error) {
	parsed, err := irParser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("ir: parse error: %w", err)
	}
	prog := &Program{}
	for _, item := range parsed.Items {
		switch {
		case item.Extern != nil:
			prog.Items = append(prog.Items, ToplevelItem{Kind: ToplevelDeclaration, Decl: convertExtern(item.Extern)})
		case item.Function != nil:
			prog.Items = append(prog.Items, ToplevelItem{Kind: ToplevelFunction, Function: convertFunc(item.Function)})
		}
	}
	return prog, nil
}

func convertExtern(e *irExtern) *ExternDecl {
	d := &ExternDecl{Name: e.Name, ReturnWidth: widthFromString(e.Width), HasReturn: true}
	for _, p := range e.Params {
		if p.Variadic {
			d.IsVariadic = true
			continue
		}
		d.Parameters = append(d.Parameters, widthFromString(p.Width))
	}
	return d
}

func convertFunc(f *irFunc) *FunctionDef {
	fn := &FunctionDef{Name: f.Name, ReturnWidth: widthFromString(f.Width), HasReturn: true}
	for _, p := range f.Params {
		fn.Parameters = append(fn.Parameters, Parameter{Name: p.Name, Width: widthFromString(p.Width)})
	}
	for _, s := range f.Body {
		fn.Body = append(fn.Body, convertStmt(s))
	}
	return fn
}

func convertStmt(s *irStmt) Ssa {
	switch {
	case s.Label != nil:
		return MakeLabel(convertLabel(s.Label.Name))
	case s.Jump != nil:
		return MakeJump(convertLabel(s.Jump.Target.Name))
	case s.Branch != nil:
		return MakeBranch(widthFromString(s.Branch.Width), convertOperand(s.Branch.Cond),
			convertLabel(s.Branch.True.Name), convertLabel(s.Branch.False.Name))
	case s.Phi != nil:
		p := &Phi{Dest: convertOperand(s.Phi.Dest), Width: widthFromString(s.Phi.Width)}
		for _, arm := range s.Phi.Arms {
			p.Merging = append(p.Merging, PhiArm{Value: convertOperand(arm.Value), From: convertLabel(arm.From.Name)})
		}
		return MakePhi(*p)
	case s.CallStmt != nil:
		var dest *CallDest
		if s.CallStmt.Dest != nil {
			dest = &CallDest{Addr: convertOperand(*s.CallStmt.Dest), Width: widthFromString(s.CallStmt.DestWidth)}
		}
		var params []CallParam
		for i, a := range s.CallStmt.Args {
			params = append(params, CallParam{Number: i, Value: convertOperand(a.Value), Width: widthFromString(a.Width), IsVariadic: a.Variadic})
		}
		return MakeCall(dest, convertOperand(s.CallStmt.Func), params)
	case s.ReturnStmt != nil:
		if s.ReturnStmt.Value == nil {
			return MakeReturn(nil)
		}
		return MakeReturn(&CallDest{Addr: convertOperand(*s.ReturnStmt.Value), Width: widthFromString(s.ReturnStmt.Width)})
	case s.Assign != nil:
		if s.Assign.Op == nil {
			return MakeAssignment(convertOperand(s.Assign.Dest), convertOperand(s.Assign.Left), widthFromString(s.Assign.Width))
		}
		op, _ := OpFromString(*s.Assign.Op)
		right := convertOperand(*s.Assign.Right)
		return MakeQuadruple(Quadruple{
			Width: widthFromString(s.Assign.Width),
			Dest:  convertOperand(s.Assign.Dest),
			Op:    op,
			Left:  convertOperand(s.Assign.Left),
			Right: &right,
		})
	}
	return Ssa{}
}

func convertOperand(o irOperand) Address {
	switch {
	case o.Numeric != nil:
		n, _ := strconv.ParseInt(*o.Numeric, 10, 64)
		return NumericAddr(n)
	case o.Str != nil:
		return StringAddr(strings.TrimSuffix(strings.TrimPrefix(*o.Str, "s'"), "'"))
	case o.Named != nil:
		if o.Named.Version == nil && strings.HasPrefix(o.Named.Ident, "_t") {
			n, err := strconv.Atoi(strings.TrimPrefix(o.Named.Ident, "_t"))
			if err == nil {
				return TempAddr(n)
			}
		}
		version := 0
		if o.Named.Version != nil {
			version, _ = strconv.Atoi(*o.Named.Version)
		}
		return SourceAddr(o.Named.Ident, version)
	}
	return Address{}
}

// convertLabel maps a printed `_l<n>` label back to a compiler-temporary
// label; every other name is a source label.
func convertLabel(name string) Label {
	if strings.HasPrefix(name, "_l") {
		if n, err := strconv.Atoi(strings.TrimPrefix(name, "_l")); err == nil {
			return TempLabel(n)
		}
	}
	return SourceLabel(name)
}

func widthFromString(s string) Width {
	switch s {
	case "b":
		return Byte
	case "s":
		return Short
	case "w":
		return Word
	case "l":
		return Long
	}
	return Word
}
