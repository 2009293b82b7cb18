package parser

import (
	"ccompiler/internal/ast"
)

type ParseError struct {
	Message  string
	Position Position
}

type Parser struct {
	tokens   []Token
	current  int
	filename string
	errors   []ParseError
}

// ParseResult bundles the parsed translation unit with any scan/parse
// errors accumulated along the way, matching the teacher's
// accumulate-then-report style rather than aborting on the first error.
type ParseResult struct {
	Unit        *ast.TranslationUnit
	ScanErrors  []ScanError
	ParseErrors []ParseError
}

func (r ParseResult) OK() bool {
	return len(r.ScanErrors) == 0 && len(r.ParseErrors) == 0
}

// ParseSource scans and parses one named source file's contents into a
// translation unit.
func ParseSource(filename, source string) ParseResult {
	scanner := NewScanner(source)
	tokens := scanner.ScanTokens()

	p := &Parser{tokens: tokens, filename: filename}
	unit := p.parseTranslationUnit()

	return ParseResult{Unit: unit, ScanErrors: scanner.Errors(), ParseErrors: p.errors}
}

func (p *Parser) parseTranslationUnit() *ast.TranslationUnit {
	unit := &ast.TranslationUnit{}
	for !p.isAtEnd() {
		item, ok := p.parseTopLevelItem()
		if !ok {
			p.synchronize()
			continue
		}
		unit.Items = append(unit.Items, item)
	}
	return unit
}

func (p *Parser) parseTopLevelItem() (ast.TopLevelItem, bool) {
	isExtern := p.match(KW_EXTERN)

	retType, retPtr, ok := p.parseTypeAndPointers()
	if !ok {
		return ast.TopLevelItem{}, false
	}

	name, ok := p.consumeIdent("expected function name")
	if !ok {
		return ast.TopLevelItem{}, false
	}

	p.consume(LEFT_PAREN, "expected '(' after function name")
	params := p.parseParamList()
	p.consume(RIGHT_PAREN, "expected ')' after parameter list")

	if isExtern {
		p.consume(SEMICOLON, "expected ';' after extern declaration")
		return ast.TopLevelItem{
			Kind: ast.TopExtern,
			Extern: &ast.ExternDecl{
				Pos: name.Pos, ReturnType: retType, ReturnPtrN: retPtr, Name: name, Params: params,
			},
		}, true
	}

	body := p.parseCompoundStatement()
	return ast.TopLevelItem{
		Kind: ast.TopFunction,
		Function: &ast.FunctionDef{
			Pos: name.Pos, ReturnType: retType, ReturnPtrN: retPtr, Name: name, Params: params, Body: body,
		},
	}, true
}

func (p *Parser) parseTypeAndPointers() (ast.DataType, int, bool) {
	var dt ast.DataType
	switch {
	case p.match(KW_INT):
		dt = ast.TypeInt
	case p.match(KW_CHAR):
		dt = ast.TypeChar
	default:
		p.errorAtCurrent("expected a type ('int' or 'char')")
		return 0, 0, false
	}
	ptrs := 0
	for p.match(STAR) {
		ptrs++
	}
	return dt, ptrs, true
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	if p.check(RIGHT_PAREN) {
		return params
	}
	for {
		if p.match(ELLIPSIS) {
			params = append(params, ast.Param{Pos: p.makePos(p.previous()), Variadic: true})
			break
		}
		p.skipConstQualifier()
		dt, ptrs, ok := p.parseTypeAndPointers()
		if !ok {
			break
		}
		var name ast.Ident
		if p.check(IDENTIFIER) {
			name, _ = p.consumeIdent("expected parameter name")
		} else {
			name = ast.Ident{Pos: p.makePos(p.peek())}
		}
		params = append(params, ast.Param{
			Pos:        name.Pos,
			Type:       dt,
			Declarator: ast.Declarator{Pos: name.Pos, Name: name, PointerN: ptrs},
		})
		if !p.match(COMMA) {
			break
		}
	}
	return params
}

func (p *Parser) parseCompoundStatement() *ast.Stmt {
	start := p.peek()
	p.consume(LEFT_BRACE, "expected '{' to begin a block")
	var stmts []*ast.Stmt
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		stmts = append(stmts, p.parseStatement())
	}
	p.consume(RIGHT_BRACE, "expected '}' to close a block")
	return &ast.Stmt{Pos: p.makePos(start), Kind: ast.StmtCompound, Stmts: stmts}
}

func (p *Parser) parseStatement() *ast.Stmt {
	switch {
	case p.check(LEFT_BRACE):
		return p.parseCompoundStatement()
	case p.match(KW_IF):
		return p.parseIfStatement()
	case p.match(KW_WHILE):
		return p.parseWhileStatement()
	case p.match(KW_RETURN):
		return p.parseReturnStatement()
	case p.check(KW_INT), p.check(KW_CHAR):
		return p.parseDeclarationStatement()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseIfStatement() *ast.Stmt {
	pos := p.makePos(p.previous())
	p.consume(LEFT_PAREN, "expected '(' after 'if'")
	cond := p.parseExpression()
	p.consume(RIGHT_PAREN, "expected ')' after if condition")
	then := p.parseStatement()
	var els *ast.Stmt
	if p.match(KW_ELSE) {
		els = p.parseStatement()
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtIf, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStatement() *ast.Stmt {
	pos := p.makePos(p.previous())
	p.consume(LEFT_PAREN, "expected '(' after 'while'")
	cond := p.parseExpression()
	p.consume(RIGHT_PAREN, "expected ')' after while condition")
	body := p.parseStatement()
	return &ast.Stmt{Pos: pos, Kind: ast.StmtWhile, Cond: cond, Body: body}
}

func (p *Parser) parseReturnStatement() *ast.Stmt {
	pos := p.makePos(p.previous())
	if p.match(SEMICOLON) {
		return &ast.Stmt{Pos: pos, Kind: ast.StmtReturn}
	}
	value := p.parseExpression()
	p.consume(SEMICOLON, "expected ';' after return value")
	return &ast.Stmt{Pos: pos, Kind: ast.StmtReturn, ReturnValue: value}
}

func (p *Parser) parseDeclarationStatement() *ast.Stmt {
	dt, ptrs, _ := p.parseTypeAndPointers()
	name, _ := p.consumeIdent("expected variable name")
	var init *ast.Expr
	if p.match(EQUAL) {
		init = p.parseExpression()
	}
	p.consume(SEMICOLON, "expected ';' after declaration")
	return &ast.Stmt{
		Pos:      name.Pos,
		Kind:     ast.StmtDecl,
		DeclType: dt,
		DeclName: ast.Declarator{Pos: name.Pos, Name: name, PointerN: ptrs},
		DeclInit: init,
	}
}

func (p *Parser) parseExprStatement() *ast.Stmt {
	pos := p.makePos(p.peek())
	expr := p.parseExpression()
	p.consume(SEMICOLON, "expected ';' after expression")
	return &ast.Stmt{Pos: pos, Kind: ast.StmtExpr, Expr: expr}
}
