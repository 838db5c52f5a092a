// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Integer NodeType = iota
	Real
	Ident
	Indexed
	BinaryOp
	UnaryOp
	Cast
	FuncCall

	// Statements
	StmtList
	Assign
	ProcCall
	While
	If
	Elsif
	Return
)

var nodeTypeNames = [...]string{
	Integer: "Integer", Real: "Real", Ident: "Ident", Indexed: "Indexed",
	BinaryOp: "BinaryOp", UnaryOp: "UnaryOp", Cast: "Cast", FuncCall: "FuncCall",
	StmtList: "StmtList", Assign: "Assign", ProcCall: "ProcCall", While: "While",
	If: "If", Elsif: "Elsif", Return: "Return",
}

func (t NodeType) String() string {
	if int(t) >= 0 && int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "NodeType(?)"
}

// IsExpr reports whether nodes of this type carry a resolved type
func (t NodeType) IsExpr() bool { return t <= FuncCall }

// Node represents a node in the Abstract Syntax Tree. Each node owns its
// children; a pass that replaces a child stores the replacement in the
// parent's Data and drops the old subtree.
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
	Typ  symtab.Index // Set by the type checker
}

// --- Node Data Structs ---
type IntegerNode struct{ Value int64 }
type RealNode struct{ Value float64 }
type IdentNode struct {
	Name string
	Sym  symtab.Index
}
type IndexedNode struct {
	Id    *Node
	Index *Node
}
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
	// ZeroDivReported is set once a constant zero divisor was diagnosed
	ZeroDivReported bool
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type CastNode struct{ Expr *Node }
type CallNode struct {
	Id   *Node
	Args []*Node
}
type StmtListNode struct{ Stmts []*Node }
type AssignNode struct{ Lhs, Rhs *Node }
type WhileNode struct {
	Cond *Node
	Body *Node
}
type IfNode struct {
	Cond     *Node
	ThenBody *Node
	Elsifs   []*Node
	ElseBody *Node
}
type ElsifNode struct {
	Cond *Node
	Body *Node
}
type ReturnNode struct{ Expr *Node }

// Program is a parsed compilation unit: its bodies in declaration order.
type Program struct {
	Name   string
	Env    symtab.Index
	Bodies []*Body
}

// Body is the statement sequence of a procedure, function or the program.
// Stmts is nil for an empty body.
type Body struct {
	Env   symtab.Index
	Tok   token.Token
	Stmts *Node
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewInteger(tok token.Token, value int64) *Node {
	return newNode(tok, Integer, IntegerNode{Value: value})
}
func NewReal(tok token.Token, value float64) *Node {
	return newNode(tok, Real, RealNode{Value: value})
}
func NewIdent(tok token.Token, name string, sym symtab.Index) *Node {
	return newNode(tok, Ident, IdentNode{Name: name, Sym: sym})
}
func NewIndexed(tok token.Token, id, index *Node) *Node {
	return newNode(tok, Indexed, IndexedNode{Id: id, Index: index})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}

// NewCast wraps expr in an integer-to-real conversion. The cast takes the
// position of the expression it converts.
func NewCast(expr *Node) *Node {
	node := newNode(expr.Tok, Cast, CastNode{Expr: expr})
	node.Typ = symtab.Real
	return node
}
func NewFuncCall(tok token.Token, id *Node, args []*Node) *Node {
	return newNode(tok, FuncCall, CallNode{Id: id, Args: args})
}
func NewProcCall(tok token.Token, id *Node, args []*Node) *Node {
	return newNode(tok, ProcCall, CallNode{Id: id, Args: args})
}
func NewStmtList(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, StmtList, StmtListNode{Stmts: stmts})
}
func NewAssign(tok token.Token, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Lhs: lhs, Rhs: rhs})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body})
}
func NewIf(tok token.Token, cond, thenBody *Node, elsifs []*Node, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, Elsifs: elsifs, ElseBody: elseBody})
}
func NewElsif(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, Elsif, ElsifNode{Cond: cond, Body: body})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}

// Walk calls fn for node and every node below it, parents first. Children
// of a node are visited in source order.
func Walk(node *Node, fn func(*Node)) {
	if node == nil {
		return
	}
	fn(node)
	switch d := node.Data.(type) {
	case IndexedNode:
		Walk(d.Id, fn)
		Walk(d.Index, fn)
	case BinaryOpNode:
		Walk(d.Left, fn)
		Walk(d.Right, fn)
	case UnaryOpNode:
		Walk(d.Expr, fn)
	case CastNode:
		Walk(d.Expr, fn)
	case CallNode:
		Walk(d.Id, fn)
		for _, arg := range d.Args {
			Walk(arg, fn)
		}
	case StmtListNode:
		for _, stmt := range d.Stmts {
			Walk(stmt, fn)
		}
	case AssignNode:
		Walk(d.Lhs, fn)
		Walk(d.Rhs, fn)
	case WhileNode:
		Walk(d.Cond, fn)
		Walk(d.Body, fn)
	case IfNode:
		Walk(d.Cond, fn)
		Walk(d.ThenBody, fn)
		for _, elsif := range d.Elsifs {
			Walk(elsif, fn)
		}
		Walk(d.ElseBody, fn)
	case ElsifNode:
		Walk(d.Cond, fn)
		Walk(d.Body, fn)
	case ReturnNode:
		Walk(d.Expr, fn)
	}
}
