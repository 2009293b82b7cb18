package codegen

import (
	"ccompiler/internal/ir"
	"ccompiler/internal/regalloc"
)

// Three reserved scratch registers, never handed to the allocator: one for
// a left/address operand, one for a right operand, one for a computed
// destination. Per spec.md §4.7.
var (
	scratchLeft  = CorruptibleRegister(0, ir.Long) // x9
	scratchRight = CorruptibleRegister(1, ir.Long) // x10
	scratchDest  = CorruptibleRegister(2, ir.Long) // x11
)

// generalRegisterPool is every register the allocator may hand out: the
// remaining corruptible registers (x12-x15) plus the callee-saved bank
// (x19-x28). Ported from original_source/src/asmgen/asm.rs's register
// selection, extended to the full x19-x28 callee-saved bank (the original
// only wires params 0-2 and a couple of scratch registers, `todo!()`-ing
// the rest).
func generalRegisterPool() ([]regalloc.Register, map[regalloc.Register]Register) {
	var ids []regalloc.Register
	byID := make(map[regalloc.Register]Register)
	id := regalloc.Register(0)
	for n := 3; n <= 6; n++ { // x12-x15
		byID[id] = CorruptibleRegister(n, ir.Long)
		ids = append(ids, id)
		id++
	}
	for n := 0; n <= 9; n++ { // x19-x28
		byID[id] = CalleeSavedRegister(n, ir.Long)
		ids = append(ids, id)
		id++
	}
	return ids, byID
}

func isCallerSaved(r Register) bool {
	switch r.Kind.Category {
	case CatFunctionArgument, CatIndirectResult, CatCorruptible, CatIP0, CatIP1, CatPR:
		return true
	}
	return false
}

func roundUp16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

// Emitter lowers one function's optimized SSA body to AArch64 instructions
// against a linear-scan allocation. Ported from
// original_source/src/asmgen/asm.rs's body_to_asm/handle_param/
// generate_precolor/handle_variadic_params, extended to all 8 argument
// registers and full variadic marshalling (the original only implements
// parameters 0-2 and leaves the rest `todo!()`).
type Emitter struct {
	globals       *SymbolTable
	fn            *ir.FunctionDef
	alloc         *regalloc.Allocator
	regByID       map[regalloc.Register]Register
	dynamicOffset int64
	instrs        []Instruction
}

func NewEmitter(globals *SymbolTable) *Emitter {
	return &Emitter{globals: globals}
}

// EmitFunction runs liveness + linear-scan allocation for fn and returns
// its full instruction stream (prologue, body, epilogue).
func (e *Emitter) EmitFunction(fn *ir.FunctionDef) ([]Instruction, error) {
	liveness := ir.ComputeLiveness(fn)

	pool, regByID := generalRegisterPool()
	precolored := make(map[ir.Address]regalloc.Register)
	for i, p := range fn.Parameters {
		if i > 7 {
			break // Apple AArch64 has 8 argument registers; spillover unsupported (§4.7 names 0..7 only)
		}
		id := regalloc.Register(1000 + i)
		precolored[ir.SourceAddr(p.Name, 0)] = id
		regByID[id] = FunctionArgRegister(i, p.Width)
	}

	alloc, err := regalloc.Allocate(fn, liveness, pool, precolored)
	if err != nil {
		return nil, err
	}

	e.fn = fn
	e.alloc = alloc
	e.regByID = regByID
	e.dynamicOffset = 0
	e.instrs = nil

	e.emitPrologue()
	for idx, s := range fn.Body {
		e.emitStmt(idx, s)
	}
	e.emitEpilogue()
	return e.instrs, nil
}

func (e *Emitter) emit(i Instruction) { e.instrs = append(e.instrs, i) }

func (e *Emitter) frameSize() int { return roundUp16(e.alloc.SpillBytes) }

func (e *Emitter) emitPrologue() {
	if label, ok := e.globals.FunctionLabels[e.fn.Name]; ok {
		e.emit(LabelInstr(label))
	}
	e.emit(StorePairInstr(FramePointer(), LinkRegister(), PreIndexed(-16)))
	e.emit(MovInstr(FramePointer(), RegVal(StackPointer())))
	e.emit(ArithInstr(ArithSub, StackPointer(), StackPointer(), ImmediateVal(int64(e.frameSize()))))
}

func (e *Emitter) emitEpilogue() {
	e.emit(LabelInstr("return_" + e.fn.Name))
	e.emit(ArithInstr(ArithAdd, StackPointer(), StackPointer(), ImmediateVal(int64(e.frameSize()))))
	e.emit(LoadPairInstr(FramePointer(), LinkRegister(), PostIndexed(16)))
	e.emit(BranchInstr(ReturnBranch()))
}

// loadOperand materializes addr as an RValue usable by the current
// instruction: a register (direct or freshly loaded from a spill slot) or
// an immediate for a numeric constant. String constants must be handled
// by the caller (Assignment/Call marshalling), not through this path.
func (e *Emitter) loadOperand(addr ir.Address, width ir.Width, scratch Register, idx int) RValue {
	if addr.Kind == ir.AddrConstNumeric {
		return ImmediateVal(addr.Numeric)
	}
	loc, ok := e.alloc.LocationOf(addr, idx)
	if !ok {
		return ImmediateVal(0)
	}
	if loc.IsSpill {
		e.emit(LoadInstr(width, scratch, StackOffset(int64(loc.Offset)+e.dynamicOffset)))
		return RegVal(scratch)
	}
	return RegVal(e.regByID[loc.Reg].Align(width))
}

// destRegister returns the register to compute into: the allocator's own
// register when dest isn't spilled, otherwise the scratch register (the
// caller must then call storeIfNeeded).
func (e *Emitter) destRegister(addr ir.Address, width ir.Width, scratch Register, idx int) Register {
	loc, ok := e.alloc.LocationOf(addr, idx)
	if ok && !loc.IsSpill {
		return e.regByID[loc.Reg].Align(width)
	}
	return scratch
}

func (e *Emitter) storeIfNeeded(addr ir.Address, width ir.Width, scratch Register, idx int) {
	loc, ok := e.alloc.LocationOf(addr, idx)
	if !ok || !loc.IsSpill {
		return
	}
	e.emit(StoreInstr(width, scratch, StackOffset(int64(loc.Offset)+e.dynamicOffset)))
}

// asRegisterOperand forces v into a register, materializing an immediate
// into scratch when the caller's instruction form requires a register
// (e.g. the left operand of cmp/arith, or a branch condition).
func (e *Emitter) asRegisterOperand(v RValue, width ir.Width, scratch Register) Register {
	if r, ok := v.AsRegister(); ok {
		return r
	}
	e.emit(MovInstr(scratch.Align(width), v))
	return scratch.Align(width)
}

func (e *Emitter) emitStmt(idx int, s ir.Ssa) {
	switch s.Kind {
	case ir.SsaLabel:
		e.emit(LabelInstr(s.Label.String()))
	case ir.SsaJump:
		e.emit(BranchInstr(UncondBranch(s.Label.String())))
	case ir.SsaBranch:
		e.emitBranch(idx, s)
	case ir.SsaReturn:
		e.emitReturn(idx, s)
	case ir.SsaAssignment:
		e.emitAssignment(idx, s)
	case ir.SsaQuadruple:
		e.emitQuadruple(idx, s)
	case ir.SsaCall:
		e.emitCall(idx, s)
	case ir.SsaPhi:
		// The emitter only ever runs on O1-optimized IR, which has no
		// Phis left (φ-elimination always runs last); nothing to do.
	}
}

func (e *Emitter) emitAssignment(idx int, s ir.Ssa) {
	width := s.Width
	destReg := e.destRegister(s.Dest, width, scratchDest, idx)

	if s.Source.Kind == ir.AddrConstString {
		label := e.globals.InternString(s.Source.StringLit)
		wide := destReg.Align(ir.Long)
		e.emit(AddressPageInstr(wide, label))
		e.emit(ArithInstr(ArithAdd, wide, wide, SymbolOffsetVal(label)))
		e.storeIfNeeded(s.Dest, width, destReg, idx)
		return
	}

	src := e.loadOperand(s.Source, width, scratchLeft, idx)
	e.emit(MovInstr(destReg, src))
	e.storeIfNeeded(s.Dest, width, destReg, idx)
}

func (e *Emitter) emitQuadruple(idx int, s ir.Ssa) {
	q := s.Quad
	leftVal := e.loadOperand(q.Left, q.Width, scratchLeft, idx)
	leftReg := e.asRegisterOperand(leftVal, q.Width, scratchLeft)

	right := ImmediateVal(0)
	if q.Right != nil {
		right = e.loadOperand(*q.Right, q.Width, scratchRight, idx)
	}

	destReg := e.destRegister(q.Dest, q.Width, scratchDest, idx)

	if q.Op.IsComparison() {
		e.emit(CmpInstr(leftReg, right))
		e.emit(CondSetInstr(destReg, ConditionalCodeFromOp(q.Op)))
	} else {
		arithOp, _ := ArithOpFromIrOp(q.Op)
		e.emit(ArithInstr(arithOp, destReg, leftReg, right))
	}
	e.storeIfNeeded(q.Dest, q.Width, destReg, idx)
}

func (e *Emitter) emitBranch(idx int, s ir.Ssa) {
	condVal := e.loadOperand(s.BranchCond, s.BranchWidth, scratchLeft, idx)
	condReg := e.asRegisterOperand(condVal, s.BranchWidth, scratchLeft)
	e.emit(CmpInstr(condReg, ImmediateVal(1)))
	e.emit(BranchInstr(CondBranch(CondEq, s.BranchTrue.String())))
	e.emit(BranchInstr(CondBranch(CondNe, s.BranchFalse.String())))
}

func (e *Emitter) emitReturn(idx int, s ir.Ssa) {
	if s.ReturnValue != nil {
		val := e.loadOperand(s.ReturnValue.Addr, s.ReturnValue.Width, scratchLeft, idx)
		e.emit(MovInstr(FunctionArgRegister(0, s.ReturnValue.Width), val))
	}
	e.emit(BranchInstr(UncondBranch("return_" + e.fn.Name)))
}

func (e *Emitter) emitCall(idx int, s ir.Ssa) {
	var nonVariadic, variadic []ir.CallParam
	for _, p := range s.CallParams {
		if p.IsVariadic {
			variadic = append(variadic, p)
		} else {
			nonVariadic = append(nonVariadic, p)
		}
	}

	var callerSaved []Register
	for _, rid := range e.alloc.UsedRegistersAt(idx) {
		reg, ok := e.regByID[rid]
		if !ok || !isCallerSaved(reg) {
			continue
		}
		callerSaved = append(callerSaved, reg)
	}

	saveBytes := roundUp16(8 * len(callerSaved))
	if saveBytes > 0 {
		e.emit(ArithInstr(ArithSub, StackPointer(), StackPointer(), ImmediateVal(int64(saveBytes))))
		for i, reg := range callerSaved {
			e.emit(StoreInstr(ir.Long, reg.Align(ir.Long), StackOffset(int64(i*8))))
		}
		e.dynamicOffset += int64(saveBytes)
	}

	loadString := func(dst Register, s string) {
		label := e.globals.InternString(s)
		e.emit(AddressPageInstr(dst, label))
		e.emit(ArithInstr(ArithAdd, dst, dst, SymbolOffsetVal(label)))
	}

	variadicBytes := roundUp16(8 * len(variadic))
	if variadicBytes > 0 {
		e.emit(ArithInstr(ArithSub, StackPointer(), StackPointer(), ImmediateVal(int64(variadicBytes))))
		for i, p := range variadic {
			if p.Value.Kind == ir.AddrConstString {
				loadString(scratchLeft, p.Value.StringLit)
				e.emit(StoreInstr(ir.Long, scratchLeft, StackOffset(int64(i*8))))
				continue
			}
			val := e.loadOperand(p.Value, p.Width, scratchLeft, idx)
			reg := e.asRegisterOperand(val, ir.Long, scratchLeft)
			e.emit(StoreInstr(ir.Long, reg.Align(ir.Long), StackOffset(int64(i*8))))
		}
		e.dynamicOffset += int64(variadicBytes)
	}

	for _, p := range nonVariadic {
		if p.Number > 7 {
			continue
		}
		if p.Value.Kind == ir.AddrConstString {
			loadString(FunctionArgRegister(p.Number, ir.Long), p.Value.StringLit)
			continue
		}
		val := e.loadOperand(p.Value, p.Width, scratchLeft, idx)
		e.emit(MovInstr(FunctionArgRegister(p.Number, p.Width), val))
	}

	e.emit(BranchInstr(LinkBranch("_" + s.CallFunc.Name)))

	destWidth := ir.Word
	if s.CallDestination != nil {
		destWidth = s.CallDestination.Width
	}
	e.emit(MovInstr(scratchDest.Align(destWidth), RegVal(FunctionArgRegister(0, destWidth))))

	if variadicBytes > 0 {
		e.emit(ArithInstr(ArithAdd, StackPointer(), StackPointer(), ImmediateVal(int64(variadicBytes))))
		e.dynamicOffset -= int64(variadicBytes)
	}
	if saveBytes > 0 {
		for i, reg := range callerSaved {
			e.emit(LoadInstr(ir.Long, reg.Align(ir.Long), StackOffset(int64(i*8))))
		}
		e.emit(ArithInstr(ArithAdd, StackPointer(), StackPointer(), ImmediateVal(int64(saveBytes))))
		e.dynamicOffset -= int64(saveBytes)
	}

	if s.CallDestination != nil {
		e.storeIfNeeded(s.CallDestination.Addr, destWidth, scratchDest.Align(destWidth), idx)
		if loc, ok := e.alloc.LocationOf(s.CallDestination.Addr, idx); ok && !loc.IsSpill {
			destReg := e.regByID[loc.Reg].Align(destWidth)
			if destReg != scratchDest.Align(destWidth) {
				e.emit(MovInstr(destReg, RegVal(scratchDest.Align(destWidth))))
			}
		}
	}
}
