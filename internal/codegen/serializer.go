package codegen

import "strings"

// SerializeProgram emits the final assembly text for every function's
// instruction stream, in the order spec.md §4.9 mandates: the text
// section with per-function globals and bodies, followed by the cstring
// section with one label per interned string literal. Ported from
// original_source/src/asmgen/asm.rs's convert_unit_to_asm/asm_into_text.
func SerializeProgram(globals *SymbolTable, funcOrder []string, funcInstrs map[string][]Instruction) string {
	var b strings.Builder

	writeLine(&b, SectionDirective(SectionText).String())
	for _, name := range funcOrder {
		if globals.IsExtern[name] {
			writeLine(&b, ExternDirective(name).String())
			continue
		}
		writeLine(&b, GlobalDirective(name).String())
	}
	for _, name := range funcOrder {
		if globals.IsExtern[name] {
			continue
		}
		for _, instr := range funcInstrs[name] {
			writeInstruction(&b, instr)
		}
	}

	if len(globals.StringOrder) > 0 {
		writeLine(&b, SectionDirective(SectionTextCString).String())
		for _, s := range globals.StringOrder {
			label, _ := globals.StringLabel(s)
			writeLine(&b, label+":")
			writeLine(&b, AsciiCStringDirective(s).String())
		}
	}

	return b.String()
}

// writeInstruction indents everything except labels and directives, which
// sit flush left, matching the teacher's emitted assembly layout.
func writeInstruction(b *strings.Builder, instr Instruction) {
	switch instr.Kind {
	case InstrLabel, InstrDirective:
		writeLine(b, instr.String())
	default:
		b.WriteString("\t")
		writeLine(b, instr.String())
	}
}

func writeLine(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteString("\n")
}
