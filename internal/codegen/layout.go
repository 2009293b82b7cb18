package codegen

import (
	"fmt"

	"ccompiler/internal/ir"
)

// SymbolTable maps every function to its Darwin link-time label and every
// distinct string literal to a stable `sl<k>` id, plus whether each
// function is a defined body (.globl) or an extern forward declaration
// (.extern). Ported from original_source/src/asmgen/lookup_table.rs's
// SymbolLookup::global_from_unit.
type SymbolTable struct {
	FunctionLabels map[string]string
	IsExtern       map[string]bool
	stringIDs      map[string]int
	StringOrder    []string
}

func GlobalSymbolTableFromProgram(prog *ir.Program) *SymbolTable {
	st := &SymbolTable{
		FunctionLabels: make(map[string]string),
		IsExtern:       make(map[string]bool),
		stringIDs:      make(map[string]int),
	}

	for _, item := range prog.Items {
		switch item.Kind {
		case ir.ToplevelFunction:
			st.FunctionLabels[item.Function.Name] = "_" + item.Function.Name
			st.IsExtern[item.Function.Name] = false
			st.collectStringsFromBody(item.Function.Body)
		case ir.ToplevelDeclaration:
			st.FunctionLabels[item.Decl.Name] = "_" + item.Decl.Name
			st.IsExtern[item.Decl.Name] = true
		}
	}
	return st
}

func (st *SymbolTable) collectStringsFromBody(body []ir.Ssa) {
	for _, s := range body {
		for _, a := range s.UsedAddresses() {
			if a.Kind == ir.AddrConstString {
				st.InternString(a.StringLit)
			}
		}
	}
}

// InternString assigns (or returns the existing) stable `sl<k>` id for a
// string literal, in first-seen order.
func (st *SymbolTable) InternString(s string) string {
	if id, ok := st.stringIDs[s]; ok {
		return fmt.Sprintf("sl%d", id)
	}
	id := len(st.StringOrder)
	st.stringIDs[s] = id
	st.StringOrder = append(st.StringOrder, s)
	return fmt.Sprintf("sl%d", id)
}

func (st *SymbolTable) StringLabel(s string) (string, bool) {
	id, ok := st.stringIDs[s]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("sl%d", id), true
}
