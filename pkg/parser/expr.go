package parser

import (
	"strconv"

	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/lexer"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

func (p *Parser) parseExpr() (*ast.Node, error) {
	tok := p.current
	switch {
	case p.match(token.Number):
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, lexer.Errorf(tok, "integer literal '%s' out of range", tok.Value)
		}
		return ast.NewInteger(tok, v), nil
	case p.match(token.FloatNumber):
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, lexer.Errorf(tok, "malformed real literal '%s'", tok.Value)
		}
		return ast.NewReal(tok, v), nil
	case p.match(token.Ident):
		return p.parseIdent(tok)
	case p.match(token.LParen):
		expr, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "')' closing expression"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, lexer.Errorf(tok, "expected an expression, found %s", describe(tok))
}

func (p *Parser) parseIdent(tok token.Token) (*ast.Node, error) {
	idx, ok := p.tab.Lookup(tok.Value)
	if !ok {
		return nil, lexer.Errorf(tok, "undeclared identifier '%s'", tok.Value)
	}
	switch p.tab.Kind(idx) {
	case symtab.KindFunction, symtab.KindProcedure:
		return nil, lexer.Errorf(tok, "%s '%s' used as a value; write (call %s ...)", p.tab.Kind(idx), tok.Value, tok.Value)
	}
	return ast.NewIdent(tok, tok.Value, idx), nil
}

// parseCompound reads the inside of a parenthesised expression: an
// operator or aref/call followed by its operands.
func (p *Parser) parseCompound() (*ast.Node, error) {
	headTok, err := p.expectName("operator")
	if err != nil {
		return nil, err
	}
	switch headTok.Value {
	case "aref":
		return p.parseIndexed()
	case "call":
		return p.parseCall(symtab.KindFunction)
	}

	op, ok := token.OperatorMap[headTok.Value]
	if !ok || op == token.Assign {
		return nil, lexer.Errorf(headTok, "unknown operator '%s'", headTok.Value)
	}
	headTok.Type = op

	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if op == token.Neg || op == token.Not {
		return ast.NewUnaryOp(headTok, op, left), nil
	}
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryOp(headTok, op, left, right), nil
}

func (p *Parser) parseIndexed() (*ast.Node, error) {
	nameTok, err := p.expectName("array name")
	if err != nil {
		return nil, err
	}
	id, err := p.parseIdent(nameTok)
	if err != nil {
		return nil, err
	}
	sym := p.tab.Resolve(id.Data.(ast.IdentNode).Sym)
	if sym.Kind != symtab.KindVariable || sym.ArrayLen == 0 {
		return nil, lexer.Errorf(nameTok, "'%s' is not an array", nameTok.Value)
	}
	index, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewIndexed(nameTok, id, index), nil
}

// parseCall reads `NAME args...` after the call keyword. want selects a
// function call (expression) or a procedure call (statement).
func (p *Parser) parseCall(want symtab.Kind) (*ast.Node, error) {
	nameTok, err := p.expectName(want.String() + " name")
	if err != nil {
		return nil, err
	}
	idx, ok := p.tab.Lookup(nameTok.Value)
	if !ok {
		return nil, lexer.Errorf(nameTok, "undeclared %s '%s'", want, nameTok.Value)
	}
	if kind := p.tab.Kind(idx); kind != want {
		return nil, lexer.Errorf(nameTok, "'%s' is a %s, not a %s", nameTok.Value, kind, want)
	}
	id := ast.NewIdent(nameTok, nameTok.Value, idx)

	var args []*ast.Node
	for !p.check(token.RParen) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if want == symtab.KindFunction {
		return ast.NewFuncCall(nameTok, id, args), nil
	}
	return ast.NewProcCall(nameTok, id, args), nil
}
