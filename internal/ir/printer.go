package ir

import (
	"fmt"
	"strings"
)

// PrintProgram renders a Program in the textual IR surface of spec.md §6:
// widths b|s|w|l, addresses %_t<n>/%<name>.<version>, labels @<name>,
// constants #<int>/s'<string>'. Ported from original_source/src/ir/text.rs,
// adjusted to the exact surface spec.md names (the original's
// to_ir_string is looser about whitespace and omits the `.version` suffix
// in some paths).
func PrintProgram(prog *Program) string {
	var sb strings.Builder
	for i, item := range prog.Items {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch item.Kind {
		case ToplevelFunction:
			sb.WriteString(PrintFunction(item.Function))
		case ToplevelDeclaration:
			sb.WriteString(printExtern(item.Decl))
		}
	}
	return sb.String()
}

func printExtern(d *ExternDecl) string {
	var params []string
	for _, w := range d.Parameters {
		params = append(params, w.String())
	}
	if d.IsVariadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("extern %s %s (%s)\n", d.ReturnWidth, d.Name, strings.Join(params, ", "))
}

func PrintFunction(fn *FunctionDef) string {
	var sb strings.Builder
	var params []string
	for _, p := range fn.Parameters {
		params = append(params, fmt.Sprintf("%s %%%s", p.Width, p.Name))
	}
	sb.WriteString(fmt.Sprintf("function %s %s (%s) {\n", fn.ReturnWidth, fn.Name, strings.Join(params, ", ")))
	for _, s := range fn.Body {
		sb.WriteString(printStmt(s))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func printAddr(a Address) string {
	switch a.Kind {
	case AddrTemp:
		return fmt.Sprintf("%%_t%d", a.Temp)
	case AddrSource:
		return fmt.Sprintf("%%%s.%d", a.Name, a.Version)
	case AddrConstNumeric:
		return fmt.Sprintf("#%d", a.Numeric)
	case AddrConstString:
		return fmt.Sprintf("s'%s'", a.StringLit)
	}
	return "?"
}

func printLabelRef(l Label) string {
	return "@" + l.String()
}

func printStmt(s Ssa) string {
	switch s.Kind {
	case SsaAssignment:
		return fmt.Sprintf("\t%s =%s %s\n", printAddr(s.Dest), s.Width, printAddr(s.Source))
	case SsaQuadruple:
		right := ""
		if s.Quad.Right != nil {
			right = " " + s.Quad.Op.String() + " " + printAddr(*s.Quad.Right)
		}
		return fmt.Sprintf("\t%s =%s %s%s\n", printAddr(s.Quad.Dest), s.Quad.Width, printAddr(s.Quad.Left), right)
	case SsaPhi:
		var arms []string
		for _, arm := range s.Phi.Merging {
			arms = append(arms, fmt.Sprintf("[%s, %s]", printAddr(arm.Value), printLabelRef(arm.From)))
		}
		return fmt.Sprintf("\t%s =%s phi %s\n", printAddr(s.Phi.Dest), s.Phi.Width, strings.Join(arms, ", "))
	case SsaCall:
		var args []string
		for _, p := range s.CallParams {
			prefix := ""
			if p.IsVariadic {
				prefix = "..."
			}
			args = append(args, fmt.Sprintf("%s%s %s", prefix, p.Width, printAddr(p.Value)))
		}
		callExpr := fmt.Sprintf("call %s(%s)", printAddr(s.CallFunc), strings.Join(args, ", "))
		if s.CallDestination != nil {
			return fmt.Sprintf("\t%s =%s %s\n", printAddr(s.CallDestination.Addr), s.CallDestination.Width, callExpr)
		}
		return "\t" + callExpr + "\n"
	case SsaReturn:
		if s.ReturnValue == nil {
			return "\treturn\n"
		}
		return fmt.Sprintf("\treturn %s %s\n", s.ReturnValue.Width, printAddr(s.ReturnValue.Addr))
	case SsaLabel:
		return printLabelRef(s.Label) + ":\n"
	case SsaJump:
		return "\tjump " + printLabelRef(s.Label) + "\n"
	case SsaBranch:
		return fmt.Sprintf("\tbranch %s %s: %s %s\n", s.BranchWidth, printAddr(s.BranchCond), printLabelRef(s.BranchTrue), printLabelRef(s.BranchFalse))
	}
	return ""
}
