// Package optimizer performs compile-time evaluation of constant
// subexpressions on type-checked trees.
package optimizer

import (
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

// Reporter receives diagnostics found while folding.
type Reporter interface {
	Error(tok token.Token, format string, args ...interface{})
	Warn(wt config.Warning, tok token.Token, format string, args ...interface{})
}

type Optimizer struct {
	syms symtab.Resolver
	rep  Reporter
	cfg  *config.Config
}

func NewOptimizer(syms symtab.Resolver, rep Reporter, cfg *config.Config) *Optimizer {
	return &Optimizer{syms: syms, rep: rep, cfg: cfg}
}

// FoldBody folds every statement of a type-checked body in place. A nil
// body is left alone.
func (o *Optimizer) FoldBody(body *ast.Node) {
	if body != nil {
		o.foldStmt(body)
	}
}

func (o *Optimizer) foldStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch d := node.Data.(type) {
	case ast.StmtListNode:
		for i, stmt := range d.Stmts {
			d.Stmts[i] = o.Fold(stmt)
		}
	case ast.AssignNode:
		d.Lhs = o.Fold(d.Lhs)
		d.Rhs = o.Fold(d.Rhs)
		node.Data = d
	case ast.CallNode:
		o.foldArgs(d.Args)
	case ast.WhileNode:
		d.Cond = o.Fold(d.Cond)
		o.foldStmt(d.Body)
		node.Data = d
	case ast.IfNode:
		d.Cond = o.Fold(d.Cond)
		o.foldStmt(d.ThenBody)
		for _, elsif := range d.Elsifs {
			o.foldStmt(elsif)
		}
		o.foldStmt(d.ElseBody)
		node.Data = d
	case ast.ElsifNode:
		d.Cond = o.Fold(d.Cond)
		o.foldStmt(d.Body)
		node.Data = d
	case ast.ReturnNode:
		if d.Expr != nil {
			d.Expr = o.Fold(d.Expr)
			node.Data = d
		}
	default:
		diag.Fatalf("folding %s node in statement position", node.Type)
	}
}

func (o *Optimizer) foldArgs(args []*ast.Node) {
	for i, arg := range args {
		args[i] = o.Fold(arg)
	}
}

// Fold returns node with its constant subexpressions evaluated; the result
// is node itself or a literal that replaces it. Statements are folded in
// place and returned unchanged.
func (o *Optimizer) Fold(node *ast.Node) *ast.Node {
	if node == nil {
		return nil
	}

	// Recursively fold children first
	switch d := node.Data.(type) {
	case ast.IntegerNode, ast.RealNode, ast.IdentNode:
		return node
	case ast.IndexedNode:
		d.Index = o.Fold(d.Index)
		node.Data = d
		return node
	case ast.UnaryOpNode:
		d.Expr = o.Fold(d.Expr)
		node.Data = d
		return node
	case ast.CallNode:
		// calls are never evaluated, only their arguments
		o.foldArgs(d.Args)
		return node
	case ast.CastNode:
		return o.foldCast(node)
	case ast.BinaryOpNode:
		d.Left = o.Fold(d.Left)
		d.Right = o.Fold(d.Right)
		node.Data = d
	default:
		o.foldStmt(node)
		return node
	}

	// Then, attempt to fold the current node.
	return o.foldBinaryOp(node)
}

// foldCast leaves casts standing unless fold-casts is enabled, in which
// case a cast of an integer constant becomes a real literal.
func (o *Optimizer) foldCast(node *ast.Node) *ast.Node {
	if !o.cfg.IsFeatureEnabled(config.FeatFoldCasts) {
		return node
	}
	d := node.Data.(ast.CastNode)
	d.Expr = o.Fold(d.Expr)
	node.Data = d
	if c, ok := o.constantOf(d.Expr); ok && c.typ == symtab.Integer {
		return o.replace(node, ast.NewReal(node.Tok, float64(c.val.Int)))
	}
	return node
}

// constant is an operand the folder can evaluate
type constant struct {
	typ symtab.Index
	val symtab.Value
}

// constantOf reports whether expr is a literal or names a declared
// constant, and returns its value. A literal's class is its own kind.
func (o *Optimizer) constantOf(expr *ast.Node) (constant, bool) {
	switch d := expr.Data.(type) {
	case ast.IntegerNode:
		return constant{typ: symtab.Integer, val: symtab.Value{Int: d.Value}}, true
	case ast.RealNode:
		return constant{typ: symtab.Real, val: symtab.Value{Real: d.Value}}, true
	case ast.IdentNode:
		if sym := o.syms.Resolve(d.Sym); sym != nil && sym.Kind == symtab.KindConstant {
			return constant{typ: expr.Typ, val: sym.Value}, true
		}
	}
	return constant{}, false
}

func (o *Optimizer) foldBinaryOp(node *ast.Node) *ast.Node {
	d := node.Data.(ast.BinaryOpNode)
	if d.Op.IsRelation() {
		return node
	}
	l, lok := o.constantOf(d.Left)
	r, rok := o.constantOf(d.Right)
	if !lok || !rok || l.typ != r.typ {
		return node
	}

	switch l.typ {
	case symtab.Integer:
		if res, folded := o.evalInteger(node, d.Op, l.val.Int, r.val.Int); folded {
			return o.replace(node, ast.NewInteger(node.Tok, res))
		}
	case symtab.Real:
		if res, folded := evalRealLogic(d.Op, l.val.Real, r.val.Real); folded {
			return o.replace(node, ast.NewInteger(node.Tok, res))
		}
		if res, folded := o.evalReal(node, d.Op, l.val.Real, r.val.Real); folded {
			return o.replace(node, ast.NewReal(node.Tok, res))
		}
	}
	return node
}

// replace hands back lit in place of node, keeping node's resolved type.
func (o *Optimizer) replace(node, lit *ast.Node) *ast.Node {
	lit.Typ = node.Typ
	o.rep.Warn(config.WarnDebugFold, node.Tok, "folded %s to %s", ast.Format(node), ast.Format(lit))
	return lit
}
