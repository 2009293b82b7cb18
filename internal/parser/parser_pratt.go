package parser

import (
	"strconv"

	"ccompiler/internal/ast"
)

// Precedence-climbing (Pratt) expression parser. Binding powers, loosest
// first: assignment, equality, relational, additive, multiplicative.

func (p *Parser) parseExpression() *ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() *ast.Expr {
	left := p.parseEquality()

	var op ast.AssignOp
	switch {
	case p.match(EQUAL):
		op = ast.AssignEq
	case p.match(PLUS_EQUAL):
		op = ast.AssignAddEq
	case p.match(MINUS_EQUAL):
		op = ast.AssignSubEq
	case p.match(STAR_EQUAL):
		op = ast.AssignMulEq
	case p.match(SLASH_EQUAL):
		op = ast.AssignDivEq
	default:
		return left
	}

	if left.Kind != ast.ExprIdent {
		p.errorAtCurrent("left-hand side of assignment must be a variable")
		return left
	}
	value := p.parseAssignment()
	return &ast.Expr{
		Pos: left.Pos, Kind: ast.ExprAssign,
		AssignTarget: left.Name, AssignOp: op, AssignValue: value,
	}
}

func (p *Parser) parseEquality() *ast.Expr {
	left := p.parseRelational()
	for p.match(EQUAL_EQUAL) {
		op := "=="
		right := p.parseRelational()
		left = &ast.Expr{Pos: left.Pos, Kind: ast.ExprBinary, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() *ast.Expr {
	left := p.parseAdditive()
	for p.check(LESS) || p.check(GREATER) {
		op := "<"
		if p.check(GREATER) {
			op = ">"
		}
		p.advance()
		right := p.parseAdditive()
		left = &ast.Expr{Pos: left.Pos, Kind: ast.ExprBinary, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() *ast.Expr {
	left := p.parseMultiplicative()
	for p.check(PLUS) || p.check(MINUS) {
		op := "+"
		if p.check(MINUS) {
			op = "-"
		}
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.Expr{Pos: left.Pos, Kind: ast.ExprBinary, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() *ast.Expr {
	left := p.parseUnary()
	for p.check(STAR) || p.check(SLASH) {
		op := "*"
		if p.check(SLASH) {
			op = "/"
		}
		p.advance()
		right := p.parseUnary()
		left = &ast.Expr{Pos: left.Pos, Kind: ast.ExprBinary, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() *ast.Expr {
	// The C subset has no unary operators of its own in spec.md's lattice
	// (no unary minus/deref is specified); parenthesization is the only
	// prefix form, handled in parsePrimary.
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *ast.Expr {
	tok := p.peek()
	switch {
	case p.match(NUMBER):
		n, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		return &ast.Expr{Pos: p.makePos(tok), Kind: ast.ExprNumber, Number: n}
	case p.match(STRING):
		return &ast.Expr{Pos: p.makePos(tok), Kind: ast.ExprString, String: tok.Lexeme}
	case p.check(IDENTIFIER):
		p.advance()
		if p.check(LEFT_PAREN) {
			return p.parseCall(tok)
		}
		return &ast.Expr{Pos: p.makePos(tok), Kind: ast.ExprIdent, Name: tok.Lexeme}
	case p.match(LEFT_PAREN):
		inner := p.parseExpression()
		p.consume(RIGHT_PAREN, "expected ')' to close parenthesized expression")
		return &ast.Expr{Pos: p.makePos(tok), Kind: ast.ExprParen, Inner: inner}
	default:
		p.errorAtCurrent("expected an expression")
		p.advance()
		return &ast.Expr{Pos: p.makePos(tok), Kind: ast.ExprNumber, Number: 0}
	}
}

func (p *Parser) parseCall(nameTok Token) *ast.Expr {
	p.consume(LEFT_PAREN, "expected '(' after function name")
	var args []*ast.Expr
	if !p.check(RIGHT_PAREN) {
		for {
			args = append(args, p.parseExpression())
			if !p.match(COMMA) {
				break
			}
		}
	}
	p.consume(RIGHT_PAREN, "expected ')' to close call arguments")
	return &ast.Expr{Pos: p.makePos(nameTok), Kind: ast.ExprCall, CalleeName: nameTok.Lexeme, Args: args}
}
