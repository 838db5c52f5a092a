package typeChecker

import (
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

// Reporter receives user-facing diagnostics. It must not stop the caller.
type Reporter interface {
	Error(tok token.Token, format string, args ...interface{})
	Warn(wt config.Warning, tok token.Token, format string, args ...interface{})
}

type TypeChecker struct {
	syms symtab.Resolver
	rep  Reporter
	cfg  *config.Config
}

// bodyContext is the state of the body currently being checked. Nothing
// outlives a CheckBody call, so independent bodies may be checked by
// independent TypeCheckers at the same time.
type bodyContext struct {
	env       *symtab.Symbol
	hasReturn bool
}

func NewTypeChecker(syms symtab.Resolver, rep Reporter, cfg *config.Config) *TypeChecker {
	return &TypeChecker{syms: syms, rep: rep, cfg: cfg}
}

// CheckBody annotates every expression of body with its type, splices in
// casts where integers meet reals, and reports type errors. env is the
// function or procedure that owns body; the program body is owned by a
// procedure. body may be nil for an empty body, in which case a missing
// return is reported without a position.
func (tc *TypeChecker) CheckBody(env symtab.Index, body *ast.Node) {
	envSym := tc.syms.Resolve(env)
	if envSym == nil {
		diag.Fatalf("type checking a body whose environment %d is not in the symbol table", env)
	}
	ctx := &bodyContext{env: envSym}
	if body != nil {
		tc.checkStmt(ctx, body)
	}

	if envSym.Kind == symtab.KindFunction && !ctx.hasReturn {
		var tok token.Token
		if body != nil && len(body.Data.(ast.StmtListNode).Stmts) > 0 {
			tok = body.Tok
		}
		tc.rep.Error(tok, "function '%s' must return a value", envSym.Name)
	}
}

func (tc *TypeChecker) typeName(idx symtab.Index) string { return symtab.TypeName(tc.syms, idx) }

func (tc *TypeChecker) checkStmt(ctx *bodyContext, node *ast.Node) {
	if node == nil {
		return
	}
	switch d := node.Data.(type) {
	case ast.StmtListNode:
		for _, stmt := range d.Stmts {
			tc.checkStmt(ctx, stmt)
		}
		node.Typ = symtab.Void
	case ast.AssignNode:
		tc.checkAssign(ctx, node)
	case ast.CallNode:
		if node.Type != ast.ProcCall {
			tc.checkExpr(ctx, node)
			return
		}
		tc.checkCall(ctx, node)
		node.Typ = symtab.Void
	case ast.WhileNode:
		if tc.checkExpr(ctx, d.Cond) != symtab.Integer {
			tc.rep.Error(d.Cond.Tok, "while condition must be of type integer, not '%s'", tc.typeName(d.Cond.Typ))
		}
		tc.checkStmt(ctx, d.Body)
		node.Typ = symtab.Void
	case ast.IfNode:
		if tc.checkExpr(ctx, d.Cond) != symtab.Integer {
			tc.rep.Error(node.Tok, "if condition must be of type integer, not '%s'", tc.typeName(d.Cond.Typ))
		}
		tc.checkStmt(ctx, d.ThenBody)
		for _, elsif := range d.Elsifs {
			tc.checkStmt(ctx, elsif)
		}
		tc.checkStmt(ctx, d.ElseBody)
		node.Typ = symtab.Void
	case ast.ElsifNode:
		if tc.checkExpr(ctx, d.Cond) != symtab.Integer {
			tc.rep.Error(d.Cond.Tok, "elsif condition must be of type integer, not '%s'", tc.typeName(d.Cond.Typ))
		}
		tc.checkStmt(ctx, d.Body)
		node.Typ = symtab.Void
	case ast.ReturnNode:
		tc.checkReturn(ctx, node)
	default:
		diag.Fatalf("type checking %s node in statement position", node.Type)
	}
}

func (tc *TypeChecker) checkAssign(ctx *bodyContext, node *ast.Node) {
	d := node.Data.(ast.AssignNode)
	lhsType, rhsType := tc.checkExpr(ctx, d.Lhs), tc.checkExpr(ctx, d.Rhs)

	if lhsType == symtab.Integer && rhsType == symtab.Real {
		tc.rep.Error(d.Rhs.Tok, "cannot assign a real value to an integer variable")
	}
	if lhsType == symtab.Real && rhsType == symtab.Integer {
		d.Rhs = ast.NewCast(d.Rhs)
		node.Data = d
	}
	node.Typ = lhsType
}

func (tc *TypeChecker) checkReturn(ctx *bodyContext, node *ast.Node) {
	ctx.hasReturn = true
	d := node.Data.(ast.ReturnNode)
	node.Typ = symtab.Void

	if d.Expr == nil {
		if ctx.env.Kind != symtab.KindProcedure {
			tc.rep.Error(node.Tok, "function '%s' must return a value", ctx.env.Name)
		}
		return
	}

	valueType := tc.checkExpr(ctx, d.Expr)
	if ctx.env.Kind != symtab.KindFunction {
		tc.rep.Error(node.Tok, "procedure '%s' may not return a value", ctx.env.Name)
		return
	}
	if valueType != ctx.env.Type {
		tc.rep.Error(d.Expr.Tok, "function '%s' returns '%s', not '%s'", ctx.env.Name, tc.typeName(ctx.env.Type), tc.typeName(valueType))
	}
}

func (tc *TypeChecker) checkExpr(ctx *bodyContext, node *ast.Node) symtab.Index {
	var typ symtab.Index
	switch d := node.Data.(type) {
	case ast.IntegerNode:
		typ = symtab.Integer
	case ast.RealNode:
		typ = symtab.Real
	case ast.IdentNode:
		typ = tc.checkIdent(d)
	case ast.IndexedNode:
		if tc.checkExpr(ctx, d.Index) != symtab.Integer {
			tc.rep.Error(d.Index.Tok, "array index must be of type integer, not '%s'", tc.typeName(d.Index.Typ))
		}
		typ = tc.checkExpr(ctx, d.Id)
	case ast.BinaryOpNode:
		typ = tc.checkBinaryOp(ctx, node)
	case ast.UnaryOpNode:
		operandType := tc.checkExpr(ctx, d.Expr)
		switch d.Op {
		case token.Neg:
			typ = operandType
		case token.Not:
			if operandType != symtab.Integer {
				tc.rep.Error(d.Expr.Tok, "operand of NOT must be of type integer, not '%s'", tc.typeName(operandType))
			}
			typ = symtab.Integer
		default:
			diag.Fatalf("unknown unary operator %s", d.Op)
		}
	case ast.CastNode:
		tc.checkExpr(ctx, d.Expr)
		typ = symtab.Real
	case ast.CallNode:
		if node.Type != ast.FuncCall {
			diag.Fatalf("procedure call used as an expression")
		}
		typ = tc.checkCall(ctx, node)
	default:
		diag.Fatalf("type checking %s node in expression position", node.Type)
	}
	node.Typ = typ
	return typ
}

// checkIdent gives a named type its own handle; every other symbol has
// its declared type.
func (tc *TypeChecker) checkIdent(d ast.IdentNode) symtab.Index {
	sym := tc.syms.Resolve(d.Sym)
	if sym == nil {
		diag.Fatalf("identifier '%s' is not bound to a symbol", d.Name)
	}
	if sym.Kind == symtab.KindNameType {
		return d.Sym
	}
	return sym.Type
}

func (tc *TypeChecker) checkBinaryOp(ctx *bodyContext, node *ast.Node) symtab.Index {
	d := node.Data.(ast.BinaryOpNode)
	leftType, rightType := tc.checkExpr(ctx, d.Left), tc.checkExpr(ctx, d.Right)
	defer func() { node.Data = d }()

	switch d.Op {
	case token.Plus, token.Minus, token.Star:
		if leftType == rightType {
			return leftType
		}
		d.Left, d.Right = widen(d.Left), widen(d.Right)
		return symtab.Real
	case token.Slash:
		d.Left, d.Right = widen(d.Left), widen(d.Right)
		return symtab.Real
	case token.And, token.Or, token.Div, token.Mod:
		opName := tokenName(d.Op)
		if rightType != symtab.Integer {
			tc.rep.Error(node.Tok, "right operand of %s must be of type integer, not '%s'", opName, tc.typeName(rightType))
		}
		if leftType != symtab.Integer {
			tc.rep.Error(node.Tok, "left operand of %s must be of type integer, not '%s'", opName, tc.typeName(leftType))
		}
		return symtab.Integer
	case token.Eq, token.Neq, token.Lt, token.Gt:
		if leftType != rightType {
			d.Left, d.Right = widen(d.Left), widen(d.Right)
		}
		if (d.Op == token.Eq || d.Op == token.Neq) && (leftType == symtab.Real || rightType == symtab.Real) {
			tc.rep.Warn(config.WarnExtra, node.Tok, "comparing real values with '%s' is exact", d.Op)
		}
		return symtab.Integer
	}
	diag.Fatalf("unknown binary operator %s", d.Op)
	return symtab.NoIndex
}

// widen casts expr to real unless it already is real
func widen(expr *ast.Node) *ast.Node {
	if expr.Typ == symtab.Real {
		return expr
	}
	return ast.NewCast(expr)
}

func tokenName(op token.Type) string {
	switch op {
	case token.And:
		return "AND"
	case token.Or:
		return "OR"
	case token.Div:
		return "DIV"
	case token.Mod:
		return "MOD"
	}
	return op.String()
}
