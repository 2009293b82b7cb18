// Package codegen lowers optimized SSA into AArch64/Darwin assembly text
// (spec.md §4.7-4.9): the instruction/register model (this file), a
// per-statement emitter driven by a linear-scan allocation, a symbol/string
// layout table, and a text serializer for the final `.s` output.
package codegen

import (
	"fmt"

	"ccompiler/internal/ir"
)

// RegCategory groups AArch64 general-purpose registers by calling
// convention role, per original_source/src/asmgen/aarch64/instructions.rs's
// RegisterKind.
type RegCategory int

const (
	CatFunctionArgument RegCategory = iota // x0-x7
	CatIndirectResult                      // x8
	CatCorruptible                         // x9-x15
	CatIP0                                  // x16
	CatIP1                                  // x17
	CatPR                                   // x18
	CatCalleeSaved                         // x19-x28
	CatFramePointer                         // x29
	CatLinkRegister                         // x30
	CatStackPointer
)

// RegisterKind identifies one physical register by category and, for the
// numbered categories, its index within that category.
type RegisterKind struct {
	Category RegCategory
	Num      int
}

// GPNum returns the general-purpose register number (0-30), filling the
// gap left by the original's `RegisterKind::to_gp_num` (which only handled
// FunctionArgument/FramePointer/LinkRegister and `todo!()`-panicked on
// every other category).
func (k RegisterKind) GPNum() (int, bool) {
	switch k.Category {
	case CatFunctionArgument:
		return k.Num, true
	case CatIndirectResult:
		return 8, true
	case CatCorruptible:
		return 9 + k.Num, true
	case CatIP0:
		return 16, true
	case CatIP1:
		return 17, true
	case CatPR:
		return 18, true
	case CatCalleeSaved:
		return 19 + k.Num, true
	case CatFramePointer:
		return 29, true
	case CatLinkRegister:
		return 30, true
	}
	return 0, false
}

// Register is a physical register sized to the operand width it's
// currently playing (selects the `w`/`x` naming prefix).
type Register struct {
	Kind  RegisterKind
	Width ir.Width
}

func (r Register) Align(w ir.Width) Register { return Register{Kind: r.Kind, Width: w} }

func (r Register) String() string {
	switch r.Kind.Category {
	case CatStackPointer:
		return "sp"
	case CatFramePointer:
		return "fp"
	case CatLinkRegister:
		return "lr"
	}
	prefix := "w"
	if r.Width == ir.Long {
		prefix = "x"
	}
	num, _ := r.Kind.GPNum()
	return fmt.Sprintf("%s%d", prefix, num)
}

func FunctionArgRegister(n int, w ir.Width) Register {
	return Register{Kind: RegisterKind{Category: CatFunctionArgument, Num: n}, Width: w}
}
func CorruptibleRegister(n int, w ir.Width) Register {
	return Register{Kind: RegisterKind{Category: CatCorruptible, Num: n}, Width: w}
}
func CalleeSavedRegister(n int, w ir.Width) Register {
	return Register{Kind: RegisterKind{Category: CatCalleeSaved, Num: n}, Width: w}
}
func FramePointer() Register {
	return Register{Kind: RegisterKind{Category: CatFramePointer}, Width: ir.Long}
}
func LinkRegister() Register {
	return Register{Kind: RegisterKind{Category: CatLinkRegister}, Width: ir.Long}
}
func StackPointer() Register {
	return Register{Kind: RegisterKind{Category: CatStackPointer}, Width: ir.Long}
}

// AddressingMode is an AArch64 memory operand.
type AddressingMode struct {
	IsOffset     bool
	IsPre        bool
	IsPost       bool
	Base         Register
	Offset       int64
	IsBareBase   bool // [base] with no offset
}

func BaseRegisterMode(r Register) AddressingMode {
	return AddressingMode{Base: r, IsBareBase: true}
}
func StackOffset(off int64) AddressingMode {
	return AddressingMode{IsOffset: true, Base: StackPointer(), Offset: off}
}
func PreIndexed(off int64) AddressingMode {
	return AddressingMode{IsPre: true, Base: StackPointer(), Offset: off}
}
func PostIndexed(off int64) AddressingMode {
	return AddressingMode{IsPost: true, Base: StackPointer(), Offset: off}
}

func (m AddressingMode) String() string {
	switch {
	case m.IsBareBase:
		return fmt.Sprintf("[%s]", m.Base)
	case m.IsPre:
		return fmt.Sprintf("[%s, #%d]!", m.Base, m.Offset)
	case m.IsPost:
		return fmt.Sprintf("[%s], #%d", m.Base, m.Offset)
	default:
		return fmt.Sprintf("[%s, #%d]", m.Base, m.Offset)
	}
}

// RValue is a register, an immediate, or a PAGEOFF symbol reference.
type RValue struct {
	IsImmediate bool
	IsSymbol    bool
	Reg         Register
	Immediate   int64
	Symbol      string
}

func RegVal(r Register) RValue       { return RValue{Reg: r} }
func ImmediateVal(n int64) RValue    { return RValue{IsImmediate: true, Immediate: n} }
func SymbolOffsetVal(s string) RValue { return RValue{IsSymbol: true, Symbol: s} }

// AsRegister reports whether v is already a register operand.
func (v RValue) AsRegister() (Register, bool) {
	if v.IsImmediate || v.IsSymbol {
		return Register{}, false
	}
	return v.Reg, true
}

func (v RValue) String() string {
	switch {
	case v.IsImmediate:
		return fmt.Sprintf("#%d", v.Immediate)
	case v.IsSymbol:
		return fmt.Sprintf("%s@PAGEOFF", v.Symbol)
	default:
		return v.Reg.String()
	}
}

// ConditionalCode selects the `cset`/branch condition suffix. Unsigned
// variants are added here to fill the gap the original left as `todo!()`
// unused lattice members (reachable only via explicit construction; the
// C subset's Op enum has no unsigned comparison operator, matching the
// Width.Short precedent documented in DESIGN.md).
type ConditionalCode int

const (
	CondEq ConditionalCode = iota
	CondNe
	CondSignedLessThan
	CondSignedGreaterThan
	CondUnsignedLessThan
	CondUnsignedGreaterThan
)

func ConditionalCodeFromOp(op ir.Op) ConditionalCode {
	switch op {
	case ir.OpEq:
		return CondEq
	case ir.OpLt:
		return CondSignedLessThan
	case ir.OpGt:
		return CondSignedGreaterThan
	}
	return CondEq
}

func (c ConditionalCode) String() string {
	switch c {
	case CondEq:
		return "eq"
	case CondNe:
		return "ne"
	case CondSignedLessThan:
		return "lt"
	case CondSignedGreaterThan:
		return "gt"
	case CondUnsignedLessThan:
		return "lo"
	case CondUnsignedGreaterThan:
		return "hi"
	}
	return "eq"
}

type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
)

func ArithOpFromIrOp(op ir.Op) (ArithOp, bool) {
	switch op {
	case ir.OpPlus:
		return ArithAdd, true
	case ir.OpMinus:
		return ArithSub, true
	case ir.OpMul:
		return ArithMul, true
	case ir.OpDiv:
		return ArithDiv, true
	}
	return 0, false
}

func (a ArithOp) String() string {
	switch a {
	case ArithAdd:
		return "add"
	case ArithSub:
		return "sub"
	case ArithMul:
		return "mul"
	case ArithDiv:
		return "sdiv"
	}
	return "add"
}

// Branch is one control-transfer form.
type Branch struct {
	Kind          BranchKind
	Label         string
	Register      Register
	ConditionCode ConditionalCode
}

type BranchKind int

const (
	BranchUnconditional BranchKind = iota
	BranchLink
	BranchLinkRegister
	BranchReturn
	BranchConditional
)

func UncondBranch(label string) Branch      { return Branch{Kind: BranchUnconditional, Label: label} }
func LinkBranch(label string) Branch        { return Branch{Kind: BranchLink, Label: label} }
func LinkRegisterBranch(r Register) Branch  { return Branch{Kind: BranchLinkRegister, Register: r} }
func ReturnBranch() Branch                  { return Branch{Kind: BranchReturn} }
func CondBranch(cc ConditionalCode, label string) Branch {
	return Branch{Kind: BranchConditional, ConditionCode: cc, Label: label}
}

func (b Branch) String() string {
	switch b.Kind {
	case BranchUnconditional:
		return "b " + b.Label
	case BranchLink:
		return "bl " + b.Label
	case BranchLinkRegister:
		return "blr " + b.Register.String()
	case BranchReturn:
		return "ret"
	case BranchConditional:
		mnemonic := "b" + b.ConditionCode.String()
		return mnemonic + " " + b.Label
	}
	return ""
}

type Section int

const (
	SectionText Section = iota
	SectionTextCString
)

func (s Section) String() string {
	if s == SectionTextCString {
		return ".section __TEXT,__cstring"
	}
	return ".section __TEXT,__text"
}

// Directive is an assembler pseudo-op.
type Directive struct {
	IsSection  bool
	IsExtern   bool
	IsGlobal   bool
	IsAsciz    bool
	Section    Section
	SymbolName string
	Text       string
}

func SectionDirective(s Section) Directive { return Directive{IsSection: true, Section: s} }
func ExternDirective(name string) Directive {
	return Directive{IsExtern: true, SymbolName: name}
}
func GlobalDirective(name string) Directive {
	return Directive{IsGlobal: true, SymbolName: name}
}
func AsciiCStringDirective(text string) Directive {
	return Directive{IsAsciz: true, Text: text}
}

func (d Directive) String() string {
	switch {
	case d.IsSection:
		return d.Section.String()
	case d.IsExtern:
		return ".extern _" + d.SymbolName
	case d.IsGlobal:
		return ".globl _" + d.SymbolName
	case d.IsAsciz:
		return fmt.Sprintf(".asciz %q", d.Text)
	}
	return ""
}

// InstructionKind discriminates Instruction.
type InstructionKind int

const (
	InstrDirective InstructionKind = iota
	InstrLabel
	InstrStorePair
	InstrLoadPair
	InstrMov
	InstrCmp
	InstrCondSet
	InstrLoad
	InstrStore
	InstrBranch
	InstrArith
	InstrAddressPage
)

// Instruction is one line of emitted assembly.
type Instruction struct {
	Kind InstructionKind

	Directive Directive
	LabelName string

	R1, R2     Register
	Addressing AddressingMode

	Dest    Register
	Operand RValue

	Left  Register
	Right RValue

	Cond ConditionalCode

	Width  ir.Width
	Source Register

	BranchOp Branch

	ArithOperation ArithOp

	Symbol string
}

func DirectiveInstr(d Directive) Instruction  { return Instruction{Kind: InstrDirective, Directive: d} }
func LabelInstr(name string) Instruction      { return Instruction{Kind: InstrLabel, LabelName: name} }
func StorePairInstr(r1, r2 Register, addr AddressingMode) Instruction {
	return Instruction{Kind: InstrStorePair, R1: r1, R2: r2, Addressing: addr}
}
func LoadPairInstr(r1, r2 Register, addr AddressingMode) Instruction {
	return Instruction{Kind: InstrLoadPair, R1: r1, R2: r2, Addressing: addr}
}
func MovInstr(dest Register, operand RValue) Instruction {
	return Instruction{Kind: InstrMov, Dest: dest, Operand: operand}
}
func CmpInstr(left Register, right RValue) Instruction {
	return Instruction{Kind: InstrCmp, Left: left, Right: right}
}
func CondSetInstr(dest Register, cond ConditionalCode) Instruction {
	return Instruction{Kind: InstrCondSet, Dest: dest, Cond: cond}
}
func LoadInstr(width ir.Width, dest Register, operand AddressingMode) Instruction {
	return Instruction{Kind: InstrLoad, Width: width, Dest: dest, Addressing: operand}
}
func StoreInstr(width ir.Width, source Register, operand AddressingMode) Instruction {
	return Instruction{Kind: InstrStore, Width: width, Source: source, Addressing: operand}
}
func BranchInstr(b Branch) Instruction { return Instruction{Kind: InstrBranch, BranchOp: b} }
func ArithInstr(op ArithOp, dest, left Register, right RValue) Instruction {
	return Instruction{Kind: InstrArith, ArithOperation: op, Dest: dest, Left: left, Right: right}
}
func AddressPageInstr(dest Register, symbol string) Instruction {
	return Instruction{Kind: InstrAddressPage, Dest: dest, Symbol: symbol}
}

func (i Instruction) String() string {
	switch i.Kind {
	case InstrDirective:
		return i.Directive.String()
	case InstrLabel:
		return i.LabelName + ":"
	case InstrStorePair:
		return fmt.Sprintf("stp %s, %s, %s", i.R1, i.R2, i.Addressing)
	case InstrLoadPair:
		return fmt.Sprintf("ldp %s, %s, %s", i.R1, i.R2, i.Addressing)
	case InstrMov:
		return fmt.Sprintf("mov %s, %s", i.Dest, i.Operand)
	case InstrCmp:
		return fmt.Sprintf("cmp %s, %s", i.Left, i.Right)
	case InstrCondSet:
		return fmt.Sprintf("cset %s, %s", i.Dest, i.Cond)
	case InstrLoad:
		return fmt.Sprintf("%s %s, %s", loadMnemonic(i.Width), i.Dest, i.Addressing)
	case InstrStore:
		return fmt.Sprintf("%s %s, %s", storeMnemonic(i.Width), i.Source, i.Addressing)
	case InstrBranch:
		return i.BranchOp.String()
	case InstrArith:
		return fmt.Sprintf("%s %s, %s, %s", i.ArithOperation, i.Dest, i.Left, i.Right)
	case InstrAddressPage:
		return fmt.Sprintf("adrp %s, %s@PAGE", i.Dest, i.Symbol)
	}
	return ""
}

func loadMnemonic(w ir.Width) string {
	switch w {
	case ir.Byte:
		return "ldrb"
	case ir.Short:
		return "ldrh"
	default:
		return "ldr"
	}
}

func storeMnemonic(w ir.Width) string {
	switch w {
	case ir.Byte:
		return "strb"
	case ir.Short:
		return "strh"
	default:
		return "str"
	}
}
