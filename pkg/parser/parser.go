package parser

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/lexer"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

// SyntaxError locates a malformed or inconsistent tree description. It is
// the errors.Cause of everything Parse returns.
type SyntaxError = lexer.SyntaxError

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	tab      *symtab.Table
	bodies   []*ast.Body
}

// NewParser creates a Parser over a lexed token stream ending in EOF.
// Declarations are installed into tab.
func NewParser(tokens []token.Token, tab *symtab.Table) *Parser {
	p := &Parser{tokens: tokens, tab: tab}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// ParseSource lexes and parses one compilation unit.
func ParseSource(source []rune, fileIndex int, tab *symtab.Table) (*ast.Program, error) {
	toks, err := lexer.NewLexer(source, fileIndex).All()
	if err != nil {
		return nil, err
	}
	return NewParser(toks, tab).Parse()
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, what string) error {
	if p.match(tokType) {
		return nil
	}
	return lexer.Errorf(p.current, "expected %s, found %s", what, describe(p.current))
}

// checkHead reports whether the current token is '(' followed by the
// symbol head.
func (p *Parser) checkHead(head string) bool {
	if !p.check(token.LParen) || p.pos+1 >= len(p.tokens) {
		return false
	}
	next := p.tokens[p.pos+1]
	return next.Type == token.Ident && next.Value == head
}

func (p *Parser) expectHead(head string) (token.Token, error) {
	if !p.checkHead(head) {
		return p.current, lexer.Errorf(p.current, "expected '(%s ...)', found %s", head, describe(p.current))
	}
	p.advance()
	tok := p.current
	p.advance()
	return tok, nil
}

func (p *Parser) expectName(what string) (token.Token, error) {
	if !p.check(token.Ident) {
		return p.current, lexer.Errorf(p.current, "expected %s, found %s", what, describe(p.current))
	}
	p.advance()
	return p.previous, nil
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.Ident, token.Number, token.FloatNumber:
		return "'" + tok.Value + "'"
	}
	return tok.Type.String()
}

// Parse reads `(program NAME decls... (body stmts...))`. The program is
// declared as a procedure so its body is checked like one.
func (p *Parser) Parse() (*ast.Program, error) {
	if _, err := p.expectHead("program"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectName("program name")
	if err != nil {
		return nil, err
	}
	env, err := p.declare(nameTok, &symtab.Symbol{Name: nameTok.Value, Kind: symtab.KindProcedure, Type: symtab.Void, Tok: nameTok})
	if err != nil {
		return nil, err
	}

	p.tab.OpenScope()
	defer p.tab.CloseScope()
	if err := p.parseRoutineRest(env); err != nil {
		return nil, errors.Wrapf(err, "in program '%s'", nameTok.Value)
	}
	if err := p.expect(token.EOF, "end of file"); err != nil {
		return nil, err
	}
	return &ast.Program{Name: nameTok.Value, Env: env, Bodies: p.bodies}, nil
}

func (p *Parser) declare(tok token.Token, sym *symtab.Symbol) (symtab.Index, error) {
	idx, err := p.tab.Declare(sym)
	if err != nil {
		return idx, lexer.Errorf(tok, "%s", err.Error())
	}
	return idx, nil
}

// parseRoutineRest parses the declarations and body that follow a routine
// header, then the closing parenthesis. The routine's scope is open.
func (p *Parser) parseRoutineRest(env symtab.Index) error {
	for !p.checkHead("body") {
		if err := p.parseDecl(); err != nil {
			return err
		}
	}
	bodyTok, err := p.expectHead("body")
	if err != nil {
		return err
	}
	stmts, err := p.parseStmtsUntilClose()
	if err != nil {
		return err
	}
	if err := p.expect(token.RParen, "')' closing body"); err != nil {
		return err
	}
	body := &ast.Body{Env: env, Tok: bodyTok}
	if len(stmts) > 0 {
		body.Stmts = ast.NewStmtList(bodyTok, stmts)
	}
	p.bodies = append(p.bodies, body)
	return p.expect(token.RParen, "')' closing routine")
}

func (p *Parser) parseDecl() error {
	if !p.check(token.LParen) {
		return lexer.Errorf(p.current, "expected a declaration or '(body ...)', found %s", describe(p.current))
	}
	p.advance()
	kindTok, err := p.expectName("declaration keyword")
	if err != nil {
		return err
	}
	switch kindTok.Value {
	case "const":
		err = p.parseConstDecl()
	case "type":
		err = p.parseTypeDecl()
	case "var":
		err = p.parseVarDecl()
	case "function", "procedure":
		return p.parseRoutineDecl(kindTok)
	default:
		return lexer.Errorf(kindTok, "unknown declaration '%s'", kindTok.Value)
	}
	if err != nil {
		return err
	}
	return p.expect(token.RParen, "')' closing declaration")
}

func (p *Parser) parseConstDecl() error {
	nameTok, err := p.expectName("constant name")
	if err != nil {
		return err
	}
	typ, typTok, err := p.parseTypeName()
	if err != nil {
		return err
	}
	sym := &symtab.Symbol{Name: nameTok.Value, Kind: symtab.KindConstant, Type: typ, Tok: nameTok}
	valTok := p.current
	switch {
	case typ == symtab.Integer && p.match(token.Number):
		v, perr := strconv.ParseInt(valTok.Value, 10, 64)
		if perr != nil {
			return lexer.Errorf(valTok, "integer constant '%s' out of range", valTok.Value)
		}
		sym.Value.Int = v
	case typ == symtab.Real && (p.match(token.Number) || p.match(token.FloatNumber)):
		v, perr := strconv.ParseFloat(valTok.Value, 64)
		if perr != nil {
			return lexer.Errorf(valTok, "malformed real constant '%s'", valTok.Value)
		}
		sym.Value.Real = v
	case typ != symtab.Integer && typ != symtab.Real:
		return lexer.Errorf(typTok, "constants must be integer or real, not '%s'", typTok.Value)
	default:
		return lexer.Errorf(valTok, "expected %s value for constant '%s', found %s", typTok.Value, nameTok.Value, describe(valTok))
	}
	_, err = p.declare(nameTok, sym)
	return err
}

func (p *Parser) parseTypeDecl() error {
	nameTok, err := p.expectName("type name")
	if err != nil {
		return err
	}
	_, err = p.declare(nameTok, &symtab.Symbol{Name: nameTok.Value, Kind: symtab.KindNameType, Type: symtab.Void, Tok: nameTok})
	return err
}

// parseVarDecl reads `NAME TYPE` or `NAME (array TYPE LEN)`.
func (p *Parser) parseVarDecl() error {
	nameTok, err := p.expectName("variable name")
	if err != nil {
		return err
	}
	sym := &symtab.Symbol{Name: nameTok.Value, Kind: symtab.KindVariable, Tok: nameTok}
	if p.checkHead("array") {
		p.advance()
		p.advance()
		if sym.Type, _, err = p.parseTypeName(); err != nil {
			return err
		}
		lenTok := p.current
		if err := p.expect(token.Number, "array length"); err != nil {
			return err
		}
		n, perr := strconv.ParseInt(lenTok.Value, 10, 64)
		if perr != nil || n <= 0 {
			return lexer.Errorf(lenTok, "array length must be a positive integer, not '%s'", lenTok.Value)
		}
		sym.ArrayLen = n
		if err := p.expect(token.RParen, "')' closing array type"); err != nil {
			return err
		}
	} else if sym.Type, _, err = p.parseTypeName(); err != nil {
		return err
	}
	_, err = p.declare(nameTok, sym)
	return err
}

func (p *Parser) parseTypeName() (symtab.Index, token.Token, error) {
	tok, err := p.expectName("type name")
	if err != nil {
		return symtab.NoIndex, tok, err
	}
	idx, ok := p.tab.Lookup(tok.Value)
	if !ok {
		return symtab.NoIndex, tok, lexer.Errorf(tok, "undeclared type '%s'", tok.Value)
	}
	if p.tab.Kind(idx) != symtab.KindNameType || idx == symtab.Void {
		return symtab.NoIndex, tok, lexer.Errorf(tok, "'%s' is not a type", tok.Value)
	}
	return idx, tok, nil
}

// parseRoutineDecl reads the rest of
// `(function NAME ((p TYPE)...) TYPE decls... (body ...))` or the
// procedure form without a return type. The routine is declared before its
// body is read, so it may call itself.
func (p *Parser) parseRoutineDecl(kindTok token.Token) error {
	nameTok, err := p.expectName(kindTok.Value + " name")
	if err != nil {
		return err
	}
	sym := &symtab.Symbol{Name: nameTok.Value, Kind: symtab.KindProcedure, Type: symtab.Void, Tok: nameTok}
	if kindTok.Value == "function" {
		sym.Kind = symtab.KindFunction
	}
	env, err := p.declare(nameTok, sym)
	if err != nil {
		return err
	}

	p.tab.OpenScope()
	defer p.tab.CloseScope()

	if err := p.parseParams(sym); err != nil {
		return errors.Wrapf(err, "in %s '%s'", kindTok.Value, nameTok.Value)
	}
	if sym.Kind == symtab.KindFunction {
		if sym.Type, _, err = p.parseTypeName(); err != nil {
			return errors.Wrapf(err, "in return type of function '%s'", nameTok.Value)
		}
	}
	if err := p.parseRoutineRest(env); err != nil {
		return errors.Wrapf(err, "in %s '%s'", kindTok.Value, nameTok.Value)
	}
	return nil
}

func (p *Parser) parseParams(routine *symtab.Symbol) error {
	if err := p.expect(token.LParen, "'(' opening parameter list"); err != nil {
		return err
	}
	for p.match(token.LParen) {
		nameTok, err := p.expectName("parameter name")
		if err != nil {
			return err
		}
		typ, _, err := p.parseTypeName()
		if err != nil {
			return err
		}
		idx, err := p.declare(nameTok, &symtab.Symbol{Name: nameTok.Value, Kind: symtab.KindVariable, Type: typ, Tok: nameTok, IsParam: true})
		if err != nil {
			return err
		}
		routine.Params = append(routine.Params, idx)
		if err := p.expect(token.RParen, "')' closing parameter"); err != nil {
			return err
		}
	}
	return p.expect(token.RParen, "')' closing parameter list")
}

// parseStmtsUntilClose reads statements up to, not including, the ')'
// that closes the enclosing form.
func (p *Parser) parseStmtsUntilClose() ([]*ast.Node, error) {
	var stmts []*ast.Node
	for !p.check(token.RParen) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// stmtList is nil for an empty statement sequence
func stmtList(tok token.Token, stmts []*ast.Node) *ast.Node {
	if len(stmts) == 0 {
		return nil
	}
	return ast.NewStmtList(tok, stmts)
}
