package parser

import (
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/lexer"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

func (p *Parser) parseStmt() (*ast.Node, error) {
	if !p.check(token.LParen) {
		return nil, lexer.Errorf(p.current, "expected a statement, found %s", describe(p.current))
	}
	p.advance()
	headTok, err := p.expectName("statement keyword")
	if err != nil {
		return nil, err
	}

	var stmt *ast.Node
	switch headTok.Value {
	case ":=":
		headTok.Type = token.Assign
		stmt, err = p.parseAssign(headTok)
	case "call":
		stmt, err = p.parseCall(symtab.KindProcedure)
	case "while":
		stmt, err = p.parseWhile(headTok)
	case "if":
		stmt, err = p.parseIf(headTok)
	case "return":
		stmt, err = p.parseReturn(headTok)
	default:
		return nil, lexer.Errorf(headTok, "unknown statement '%s'", headTok.Value)
	}
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RParen, "')' closing statement"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseAssign(tok token.Token) (*ast.Node, error) {
	lhsTok := p.current
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.isVariableRef(lhs) {
		return nil, lexer.Errorf(lhsTok, "left side of ':=' must be a variable or array element")
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewAssign(tok, lhs, rhs), nil
}

func (p *Parser) isVariableRef(node *ast.Node) bool {
	switch d := node.Data.(type) {
	case ast.IdentNode:
		sym := p.tab.Resolve(d.Sym)
		return sym.Kind == symtab.KindVariable && sym.ArrayLen == 0
	case ast.IndexedNode:
		return true
	}
	return false
}

func (p *Parser) parseWhile(tok token.Token) (*ast.Node, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStmtsUntilClose()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(tok, cond, stmtList(tok, stmts)), nil
}

// parseIf reads `c (then ...) (elsif c ...)* (else ...)?`.
func (p *Parser) parseIf(tok token.Token) (*ast.Node, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	thenTok, err := p.expectHead("then")
	if err != nil {
		return nil, err
	}
	thenBody, err := p.parseClauseBody(thenTok)
	if err != nil {
		return nil, err
	}

	var elsifs []*ast.Node
	for p.checkHead("elsif") {
		elsifTok, _ := p.expectHead("elsif")
		elsifCond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseClauseBody(elsifTok)
		if err != nil {
			return nil, err
		}
		elsifs = append(elsifs, ast.NewElsif(elsifTok, elsifCond, body))
	}

	var elseBody *ast.Node
	if p.checkHead("else") {
		elseTok, _ := p.expectHead("else")
		if elseBody, err = p.parseClauseBody(elseTok); err != nil {
			return nil, err
		}
	}
	return ast.NewIf(tok, cond, thenBody, elsifs, elseBody), nil
}

// parseClauseBody reads the statements of a then/elsif/else clause and its
// closing parenthesis.
func (p *Parser) parseClauseBody(tok token.Token) (*ast.Node, error) {
	stmts, err := p.parseStmtsUntilClose()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RParen, "')' closing '"+tok.Value+"'"); err != nil {
		return nil, err
	}
	return stmtList(tok, stmts), nil
}

func (p *Parser) parseReturn(tok token.Token) (*ast.Node, error) {
	if p.check(token.RParen) {
		return ast.NewReturn(tok, nil), nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewReturn(tok, expr), nil
}
