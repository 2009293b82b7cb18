package semantic

import (
	"fmt"

	"ccompiler/internal/ast"
	cerr "ccompiler/internal/errors"
)

// Analyzer performs one pass over a translation unit: populate the global
// symbol table with every function/extern, then walk each function body
// checking variable/function resolution, redeclaration, and call arity.
// This mirrors the teacher's one-pass internal/semantic/analyzer.go
// structure, scaled down to the C subset's much smaller type lattice.
type Analyzer struct {
	filename string
	table    *SymbolTable
	errors   []cerr.CompilerError
}

func NewAnalyzer(filename string) *Analyzer {
	return &Analyzer{filename: filename, table: NewSymbolTable()}
}

func (a *Analyzer) Errors() []cerr.CompilerError { return a.errors }
func (a *Analyzer) Table() *SymbolTable          { return a.table }

func (a *Analyzer) error(code string, pos ast.Position, format string, args ...interface{}) {
	pos.Filename = a.filename
	a.errors = append(a.errors, cerr.CompilerError{
		Level:    cerr.Error,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Length:   1,
	})
}

func declType(dt ast.DataType, ptrs int) SymbolType {
	base := IntType
	if dt == ast.TypeChar {
		base = CharType
	}
	return MakePointer(base, ptrs)
}

// Analyze registers every toplevel declaration, then checks each function
// body. Returns false if any fatal diagnostic was recorded.
func (a *Analyzer) Analyze(unit *ast.TranslationUnit) bool {
	for _, item := range unit.Items {
		switch item.Kind {
		case ast.TopFunction:
			a.declareFunction(item.Function.Name.Value, item.Function.Name.Pos,
				item.Function.Params, declType(item.Function.ReturnType, item.Function.ReturnPtrN), false)
		case ast.TopExtern:
			a.declareFunction(item.Extern.Name.Value, item.Extern.Name.Pos,
				item.Extern.Params, declType(item.Extern.ReturnType, item.Extern.ReturnPtrN), true)
		}
	}

	for _, item := range unit.Items {
		if item.Kind == ast.TopFunction {
			a.checkFunction(item.Function)
		}
	}

	return len(a.errors) == 0
}

func (a *Analyzer) declareFunction(name string, pos ast.Position, params []ast.Param, ret SymbolType, isExtern bool) {
	if _, exists := a.table.Query(name); exists {
		a.error(cerr.ErrorRedeclaration, pos, "function '%s' is already declared", name)
		return
	}
	var paramTypes []SymbolType
	variadic := false
	for _, p := range params {
		if p.Variadic {
			variadic = true
			continue
		}
		paramTypes = append(paramTypes, declType(p.Type, p.Declarator.PointerN))
	}
	a.table.AddGlobalSymbol(Symbol{
		Name: name, Kind: KindFunction, Parameters: paramTypes, ReturnType: ret,
		HasReturn: true, IsVariadic: variadic, IsExternDecl: isExtern,
	})
}

func (a *Analyzer) checkFunction(fn *ast.FunctionDef) {
	a.table.EnterScope()
	defer a.table.ExitScope()

	for _, p := range fn.Params {
		if p.Variadic {
			continue
		}
		a.table.AddSymbol(Symbol{
			Name: p.Declarator.Name.Value, Kind: KindVariable,
			Type: declType(p.Type, p.Declarator.PointerN), IsMutable: true,
		})
	}

	a.checkStmt(fn.Body)
}

func (a *Analyzer) checkStmt(s *ast.Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ast.StmtCompound:
		a.table.EnterScope()
		for _, inner := range s.Stmts {
			a.checkStmt(inner)
		}
		a.table.ExitScope()
	case ast.StmtDecl:
		if _, exists := a.table.current.Symbols[s.DeclName.Name.Value]; exists {
			a.error(cerr.ErrorRedeclaration, s.Pos, "'%s' is already declared in this scope", s.DeclName.Name.Value)
		}
		if s.DeclInit != nil {
			a.checkExpr(s.DeclInit)
		}
		a.table.AddSymbol(Symbol{
			Name: s.DeclName.Name.Value, Kind: KindVariable,
			Type: declType(s.DeclType, s.DeclName.PointerN), IsMutable: true,
		})
	case ast.StmtExpr:
		a.checkExpr(s.Expr)
	case ast.StmtIf:
		a.checkExpr(s.Cond)
		a.checkStmt(s.Then)
		a.checkStmt(s.Else)
	case ast.StmtWhile:
		a.checkExpr(s.Cond)
		a.checkStmt(s.Body)
	case ast.StmtReturn:
		if s.ReturnValue != nil {
			a.checkExpr(s.ReturnValue)
		}
	}
}

func (a *Analyzer) checkExpr(e *ast.Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		if _, ok := a.table.Query(e.Name); !ok {
			a.error(cerr.ErrorUndefinedVariable, e.Pos, "undefined variable '%s'", e.Name)
		}
	case ast.ExprBinary:
		a.checkExpr(e.Left)
		a.checkExpr(e.Right)
	case ast.ExprParen:
		a.checkExpr(e.Inner)
	case ast.ExprAssign:
		if _, ok := a.table.Query(e.AssignTarget); !ok {
			a.error(cerr.ErrorUndefinedVariable, e.Pos, "undefined variable '%s'", e.AssignTarget)
		}
		a.checkExpr(e.AssignValue)
	case ast.ExprCall:
		sym, ok := a.table.Query(e.CalleeName)
		if !ok || sym.Kind != KindFunction {
			a.error(cerr.ErrorUndefinedFunction, e.Pos, "call to undefined function '%s'", e.CalleeName)
		} else if !sym.IsVariadic && len(e.Args) != len(sym.Parameters) {
			a.error(cerr.ErrorArityMismatch, e.Pos, "'%s' expects %d argument(s), got %d", e.CalleeName, len(sym.Parameters), len(e.Args))
		} else if sym.IsVariadic && len(e.Args) < len(sym.Parameters) {
			a.error(cerr.ErrorArityMismatch, e.Pos, "'%s' expects at least %d argument(s), got %d", e.CalleeName, len(sym.Parameters), len(e.Args))
		}
		for _, arg := range e.Args {
			a.checkExpr(arg)
		}
	}
}
