package ir

import (
	"fmt"
	"sort"

	"ccompiler/internal/ast"
	cerr "ccompiler/internal/errors"
	"ccompiler/internal/semantic"
)

// Builder lowers a typed translation unit into SSA, threading a per-function
// counter/version state through the traversal. Ported statement-by-statement
// from original_source/src/ir/ssa.rs; the while-loop dummy-probe pass there
// is replaced here by a pure AST name-collection walk (collectWrites) since
// only variable *names*, not real SSA, are needed to seed the loop's
// φ-placeholders (see DESIGN.md).
type Builder struct {
	table    *semantic.SymbolTable
	filename string
	errors   []cerr.CompilerError
}

func NewBuilder(table *semantic.SymbolTable, filename string) *Builder {
	return &Builder{table: table, filename: filename}
}

func (b *Builder) Errors() []cerr.CompilerError { return b.errors }

func (b *Builder) fail(code string, pos ast.Position, format string, args ...interface{}) {
	pos.Filename = b.filename
	b.errors = append(b.errors, cerr.CompilerError{
		Level: cerr.Error, Code: code, Message: fmt.Sprintf(format, args...), Position: pos, Length: 1,
	})
}

// BuildProgram lowers every toplevel item of unit into an ir.Program.
func (b *Builder) BuildProgram(unit *ast.TranslationUnit) *Program {
	prog := &Program{}
	for _, item := range unit.Items {
		switch item.Kind {
		case ast.TopExtern:
			prog.Items = append(prog.Items, b.buildExtern(item.Extern))
		case ast.TopFunction:
			prog.Items = append(prog.Items, b.buildFunction(item.Function))
		}
	}
	return prog
}

func irWidthOf(t semantic.SymbolType) Width {
	return WidthFromSourceType(t.IsPointer, t.IsChar)
}

func (b *Builder) buildExtern(d *ast.ExternDecl) ToplevelItem {
	sym, _ := b.table.Query(d.Name.Value)
	decl := &ExternDecl{Name: d.Name.Value, ReturnWidth: Word, HasReturn: true}
	if sym != nil {
		decl.ReturnWidth = irWidthOf(sym.ReturnType)
		decl.IsVariadic = sym.IsVariadic
		for _, p := range sym.Parameters {
			decl.Parameters = append(decl.Parameters, irWidthOf(p))
		}
	}
	return ToplevelItem{Kind: ToplevelDeclaration, Decl: decl}
}

// funcBuilder holds the mutable state threaded through one function's
// lowering: the temp/label counters, per-name version counters, and the
// current "parent φ label" used as the predecessor for the next φ this
// function emits.
type funcBuilder struct {
	b    *Builder
	name string

	tempCounter  int
	labelCounter int
	versions     map[string]int

	returnWidth Width
	hasReturn   bool

	parentPhiLabel Label
	body           []Ssa
}

func (b *Builder) buildFunction(fn *ast.FunctionDef) ToplevelItem {
	sym, _ := b.table.Query(fn.Name.Value)
	returnWidth := Word
	if sym != nil {
		returnWidth = irWidthOf(sym.ReturnType)
	}

	fb := &funcBuilder{
		b: b, name: fn.Name.Value,
		versions:    make(map[string]int),
		returnWidth: returnWidth, hasReturn: true,
	}

	def := &FunctionDef{Name: fn.Name.Value, ReturnWidth: returnWidth, HasReturn: true}
	for _, p := range fn.Params {
		if p.Variadic {
			continue
		}
		w := irWidthOf(semantic.MakePointer(baseType(p.Type), p.Declarator.PointerN))
		def.Parameters = append(def.Parameters, Parameter{Name: p.Declarator.Name.Value, Width: w})
		fb.versions[p.Declarator.Name.Value] = 0
	}

	entryLabel := SourceLabel("start_function_" + fn.Name.Value)
	fb.emit(MakeLabel(entryLabel))
	fb.parentPhiLabel = entryLabel

	fb.lowerStmt(fn.Body)

	def.Body = fb.body
	return ToplevelItem{Kind: ToplevelFunction, Function: def}
}

func baseType(dt ast.DataType) semantic.SymbolType {
	if dt == ast.TypeChar {
		return semantic.CharType
	}
	return semantic.IntType
}

func (fb *funcBuilder) newTemp() int {
	fb.tempCounter++
	return fb.tempCounter
}

func (fb *funcBuilder) newLabel() Label {
	fb.labelCounter++
	return TempLabel(fb.labelCounter)
}

func (fb *funcBuilder) emit(s Ssa) {
	fb.body = append(fb.body, s)
}

func (fb *funcBuilder) currentVersion(name string) int {
	return fb.versions[name] // zero value is correct default
}

func (fb *funcBuilder) nextVersion(name string) int {
	v := fb.versions[name] + 1
	if _, ok := fb.versions[name]; !ok {
		v = 0
	}
	fb.versions[name] = v
	return v
}

func (fb *funcBuilder) snapshotVersions() map[string]int {
	snap := make(map[string]int, len(fb.versions))
	for k, v := range fb.versions {
		snap[k] = v
	}
	return snap
}

func (fb *funcBuilder) widthOfVar(name string) Width {
	sym, ok := fb.b.table.Query(name)
	if !ok {
		return Word
	}
	return irWidthOf(sym.Type)
}

// ---- statements ----

func (fb *funcBuilder) lowerStmt(s *ast.Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ast.StmtCompound:
		for _, inner := range s.Stmts {
			fb.lowerStmt(inner)
		}
	case ast.StmtDecl:
		fb.lowerDecl(s)
	case ast.StmtExpr:
		fb.lowerExpr(s.Expr, nil)
	case ast.StmtIf:
		fb.lowerIf(s)
	case ast.StmtWhile:
		fb.lowerWhile(s)
	case ast.StmtReturn:
		fb.lowerReturn(s)
	}
}

func (fb *funcBuilder) lowerDecl(s *ast.Stmt) {
	width := irWidthOf(semantic.MakePointer(baseType(s.DeclType), s.DeclName.PointerN))
	version := fb.nextVersion(s.DeclName.Name.Value)
	dest := SourceAddr(s.DeclName.Name.Value, version)
	if s.DeclInit == nil {
		fb.emit(MakeAssignment(dest, NumericAddr(0), width))
		return
	}
	val, _ := fb.lowerExpr(s.DeclInit, &width)
	fb.emit(MakeAssignment(dest, val, width))
}

func (fb *funcBuilder) lowerReturn(s *ast.Stmt) {
	if s.ReturnValue == nil {
		fb.emit(MakeReturn(nil))
		return
	}
	width := fb.returnWidth
	val, _ := fb.lowerExpr(s.ReturnValue, &width)
	fb.emit(MakeReturn(&CallDest{Addr: val, Width: width}))
}

func (fb *funcBuilder) lowerIf(s *ast.Stmt) {
	condWidth := Word
	cond, _ := fb.lowerExpr(s.Cond, &condWidth)

	lTrue := fb.newLabel()
	lFalse := fb.newLabel()
	fb.emit(MakeBranch(condWidth, cond, lTrue, lFalse))

	countsBefore := fb.snapshotVersions()
	outerPhiLabel := fb.parentPhiLabel

	fb.emit(MakeLabel(lTrue))
	fb.lowerStmt(s.Then)
	afterThen := fb.snapshotVersions()
	changedTrue := changedNames(countsBefore, afterThen)

	if s.Else == nil {
		fb.emit(MakeLabel(lFalse))
		names := sortedKeys(changedTrue)
		for _, name := range names {
			width := fb.widthOfVar(name)
			destVer := fb.nextVersion(name)
			fb.emit(MakePhi(Phi{
				Dest: SourceAddr(name, destVer), Width: width,
				Merging: []PhiArm{
					{Value: SourceAddr(name, afterThen[name]), From: lTrue},
					{Value: SourceAddr(name, countsBefore[name]), From: outerPhiLabel},
				},
			}))
		}
		fb.parentPhiLabel = lFalse
		return
	}

	lEnd := fb.newLabel()
	fb.emit(MakeJump(lEnd))

	// Roll back versions to the pre-if snapshot so the else branch starts
	// from the same values the then-branch started from.
	fb.versions = copyMap(countsBefore)
	fb.emit(MakeLabel(lFalse))
	fb.lowerStmt(s.Else)
	afterElse := fb.snapshotVersions()
	changedFalse := changedNames(countsBefore, afterElse)
	fb.emit(MakeJump(lEnd))

	fb.emit(MakeLabel(lEnd))
	union := unionSets(changedTrue, changedFalse)
	for _, name := range sortedKeys(union) {
		width := fb.widthOfVar(name)
		var trueArm, falseArm PhiArm
		if changedTrue[name] {
			trueArm = PhiArm{Value: SourceAddr(name, afterThen[name]), From: lTrue}
		} else {
			trueArm = PhiArm{Value: SourceAddr(name, countsBefore[name]), From: outerPhiLabel}
		}
		if changedFalse[name] {
			falseArm = PhiArm{Value: SourceAddr(name, afterElse[name]), From: lFalse}
		} else {
			falseArm = PhiArm{Value: SourceAddr(name, countsBefore[name]), From: outerPhiLabel}
		}
		destVer := fb.nextVersion(name)
		fb.emit(MakePhi(Phi{Dest: SourceAddr(name, destVer), Width: width, Merging: []PhiArm{trueArm, falseArm}}))
	}
	fb.parentPhiLabel = lEnd
}

func (fb *funcBuilder) lowerWhile(s *ast.Stmt) {
	countsBefore := fb.snapshotVersions()
	known := make(map[string]bool, len(countsBefore))
	for name := range countsBefore {
		known[name] = true
	}
	writes := collectWrites(s.Body, known)
	names := sortedKeys(writes)

	lCond := fb.newLabel()
	lStart := fb.newLabel()
	lEnd := fb.newLabel()
	outerPhiLabel := fb.parentPhiLabel

	fb.emit(MakeLabel(lCond))

	phiPtrs := make(map[string]*Phi, len(names))
	mergedVersion := make(map[string]int, len(names))
	for _, name := range names {
		width := fb.widthOfVar(name)
		destVer := fb.nextVersion(name)
		mergedVersion[name] = destVer
		ph := Phi{
			Dest: SourceAddr(name, destVer), Width: width,
			Merging: []PhiArm{{Value: SourceAddr(name, countsBefore[name]), From: outerPhiLabel}},
		}
		stmt := MakePhi(ph)
		phiPtrs[name] = stmt.Phi
		fb.emit(stmt)
	}

	condWidth := Word
	cond, _ := fb.lowerExpr(s.Cond, &condWidth)
	fb.emit(MakeBranch(condWidth, cond, lStart, lEnd))

	fb.emit(MakeLabel(lStart))
	fb.lowerStmt(s.Body)
	for _, name := range names {
		phiPtrs[name].Merging = append(phiPtrs[name].Merging, PhiArm{
			Value: SourceAddr(name, fb.currentVersion(name)), From: lStart,
		})
	}
	fb.emit(MakeJump(lCond))

	fb.emit(MakeLabel(lEnd))
	for _, name := range names {
		width := fb.widthOfVar(name)
		destVer := fb.nextVersion(name)
		fb.emit(MakePhi(Phi{
			Dest: SourceAddr(name, destVer), Width: width,
			Merging: []PhiArm{{Value: SourceAddr(name, mergedVersion[name]), From: lCond}},
		}))
	}
	fb.parentPhiLabel = lEnd
}

// ---- expressions ----

// lowerExpr lowers e and returns the address holding its value together
// with the width it was computed at. ctxWidth supplies the expected width
// for a bare numeric literal; nil is only valid when e cannot be a bare
// literal at the top of its own subtree (binary/call operands always pass
// a concrete context).
func (fb *funcBuilder) lowerExpr(e *ast.Expr, ctxWidth *Width) (Address, Width) {
	switch e.Kind {
	case ast.ExprNumber:
		if ctxWidth == nil {
			fb.b.fail(cerr.ErrorTypeWidth, e.Pos, "numeric literal has no contextual width")
			return NumericAddr(e.Number), Word
		}
		return NumericAddr(e.Number), *ctxWidth
	case ast.ExprString:
		return StringAddr(e.String), Long
	case ast.ExprIdent:
		return SourceAddr(e.Name, fb.currentVersion(e.Name)), fb.widthOfVar(e.Name)
	case ast.ExprParen:
		return fb.lowerExpr(e.Inner, ctxWidth)
	case ast.ExprBinary:
		return fb.lowerBinary(e, ctxWidth)
	case ast.ExprCall:
		return fb.lowerCall(e)
	case ast.ExprAssign:
		return fb.lowerAssignExpr(e)
	}
	fb.b.fail(cerr.ErrorStructural, e.Pos, "unsupported expression")
	return NumericAddr(0), Word
}

func (fb *funcBuilder) lowerBinary(e *ast.Expr, ctxWidth *Width) (Address, Width) {
	op, ok := OpFromString(e.BinOp)
	if !ok {
		fb.b.fail(cerr.ErrorStructural, e.Pos, "unknown operator %q", e.BinOp)
		op = OpPlus
	}

	width := Word
	if ctxWidth != nil {
		width = *ctxWidth
	} else if w, ok := fb.inferWidth(e.Left); ok {
		width = w
	} else if w, ok := fb.inferWidth(e.Right); ok {
		width = w
	}

	left, _ := fb.lowerExpr(e.Left, &width)
	right, _ := fb.lowerExpr(e.Right, &width)

	dest := TempAddr(fb.newTemp())
	fb.emit(MakeQuadruple(Quadruple{Width: width, Dest: dest, Op: op, Left: left, Right: &right}))
	return dest, width
}

// inferWidth determines a width for an operand without forcing a bare
// literal to materialize one, used only to seed a binary expression's
// width when no outer context supplied one.
func (fb *funcBuilder) inferWidth(e *ast.Expr) (Width, bool) {
	switch e.Kind {
	case ast.ExprIdent:
		return fb.widthOfVar(e.Name), true
	case ast.ExprString:
		return Long, true
	case ast.ExprParen:
		return fb.inferWidth(e.Inner)
	}
	return 0, false
}

func (fb *funcBuilder) lowerAssignExpr(e *ast.Expr) (Address, Width) {
	width := fb.widthOfVar(e.AssignTarget)

	if op, isCompound := e.AssignOp.CompoundOp(); isCompound {
		rhs, _ := fb.lowerExpr(e.AssignValue, &width)
		o, _ := OpFromString(op)
		cur := SourceAddr(e.AssignTarget, fb.currentVersion(e.AssignTarget))
		tmp := TempAddr(fb.newTemp())
		fb.emit(MakeQuadruple(Quadruple{Width: width, Dest: tmp, Op: o, Left: cur, Right: &rhs}))
		destVer := fb.nextVersion(e.AssignTarget)
		dest := SourceAddr(e.AssignTarget, destVer)
		fb.emit(MakeAssignment(dest, tmp, width))
		return dest, width
	}

	rhs, _ := fb.lowerExpr(e.AssignValue, &width)
	destVer := fb.nextVersion(e.AssignTarget)
	dest := SourceAddr(e.AssignTarget, destVer)
	fb.emit(MakeAssignment(dest, rhs, width))
	return dest, width
}

func (fb *funcBuilder) lowerCall(e *ast.Expr) (Address, Width) {
	sym, ok := fb.b.table.Query(e.CalleeName)

	var fn Address
	if ok && sym.Kind == semantic.KindFunction {
		fn = SourceAddr(e.CalleeName, 0)
	} else {
		fb.b.fail(cerr.ErrorStructural, e.Pos, "call to unresolved callee %q", e.CalleeName)
		fn = SourceAddr(e.CalleeName, 0)
	}

	declaredN := 0
	if ok {
		declaredN = len(sym.Parameters)
	}

	var params []CallParam
	for i, arg := range e.Args {
		isVariadic := i >= declaredN
		var w Width
		if !isVariadic {
			w = irWidthOf(sym.Parameters[i])
		} else if inferred, found := fb.inferWidth(arg); found {
			w = inferred
		} else {
			w = Word
		}
		val, _ := fb.lowerExpr(arg, &w)
		params = append(params, CallParam{Number: i, Value: val, Width: w, IsVariadic: isVariadic})
	}

	returnWidth := Word
	hasReturn := true
	if ok {
		returnWidth = irWidthOf(sym.ReturnType)
		hasReturn = sym.HasReturn
	}

	var dest *CallDest
	if hasReturn {
		dest = &CallDest{Addr: TempAddr(fb.newTemp()), Width: returnWidth}
	}
	fb.emit(MakeCall(dest, fn, params))
	if dest != nil {
		return dest.Addr, dest.Width
	}
	return NumericAddr(0), Word
}

// ---- small AST/set helpers ----

// collectWrites walks stmt (without lowering it) to find every name in
// known that is assigned to somewhere in its subtree - the set of
// loop-carried variables a while loop needs φ-placeholders for.
func collectWrites(stmt *ast.Stmt, known map[string]bool) map[string]bool {
	out := make(map[string]bool)
	var walkStmt func(*ast.Stmt)
	var walkExpr func(*ast.Expr)
	walkExpr = func(e *ast.Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case ast.ExprAssign:
			if known[e.AssignTarget] {
				out[e.AssignTarget] = true
			}
			walkExpr(e.AssignValue)
		case ast.ExprBinary:
			walkExpr(e.Left)
			walkExpr(e.Right)
		case ast.ExprParen:
			walkExpr(e.Inner)
		case ast.ExprCall:
			for _, a := range e.Args {
				walkExpr(a)
			}
		}
	}
	walkStmt = func(s *ast.Stmt) {
		if s == nil {
			return
		}
		switch s.Kind {
		case ast.StmtCompound:
			for _, inner := range s.Stmts {
				walkStmt(inner)
			}
		case ast.StmtExpr:
			walkExpr(s.Expr)
		case ast.StmtDecl:
			walkExpr(s.DeclInit)
		case ast.StmtIf:
			walkExpr(s.Cond)
			walkStmt(s.Then)
			walkStmt(s.Else)
		case ast.StmtWhile:
			walkExpr(s.Cond)
			walkStmt(s.Body)
		case ast.StmtReturn:
			walkExpr(s.ReturnValue)
		}
	}
	walkStmt(stmt)
	return out
}

func changedNames(before, after map[string]int) map[string]bool {
	out := make(map[string]bool)
	for name, v := range before {
		if after[name] != v {
			out[name] = true
		}
	}
	return out
}

func unionSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
