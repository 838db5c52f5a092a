package ast

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/pasem/pkg/symtab"
)

// Printer renders trees in the same s-expression notation the parser reads.
// When Types is set, every expression is suffixed with ':' and the name of
// its resolved type.
type Printer struct {
	Types symtab.Resolver
}

// Format prints node without type annotations
func Format(node *Node) string {
	return Printer{}.Format(node)
}

// FormatTyped prints node with type annotations resolved through r
func FormatTyped(node *Node, r symtab.Resolver) string {
	return Printer{Types: r}.Format(node)
}

func (p Printer) Format(node *Node) string {
	var sb strings.Builder
	p.write(&sb, node)
	return sb.String()
}

func (p Printer) write(sb *strings.Builder, node *Node) {
	if node == nil {
		sb.WriteString("()")
		return
	}
	switch d := node.Data.(type) {
	case IntegerNode:
		sb.WriteString(strconv.FormatInt(d.Value, 10))
	case RealNode:
		sb.WriteString(FormatReal(d.Value))
	case IdentNode:
		sb.WriteString(d.Name)
	case IndexedNode:
		p.list(sb, "aref", d.Id, d.Index)
	case BinaryOpNode:
		p.list(sb, d.Op.String(), d.Left, d.Right)
	case UnaryOpNode:
		p.list(sb, d.Op.String(), d.Expr)
	case CastNode:
		p.list(sb, "cast", d.Expr)
	case CallNode:
		p.list(sb, "call", append([]*Node{d.Id}, d.Args...)...)
	case StmtListNode:
		for i, stmt := range d.Stmts {
			if i > 0 {
				sb.WriteByte('\n')
			}
			p.write(sb, stmt)
		}
		return
	case AssignNode:
		p.list(sb, ":=", d.Lhs, d.Rhs)
		return
	case WhileNode:
		sb.WriteString("(while ")
		p.write(sb, d.Cond)
		p.stmts(sb, d.Body)
		sb.WriteByte(')')
	case IfNode:
		sb.WriteString("(if ")
		p.write(sb, d.Cond)
		sb.WriteString(" (then")
		p.stmts(sb, d.ThenBody)
		sb.WriteByte(')')
		for _, elsif := range d.Elsifs {
			sb.WriteByte(' ')
			p.write(sb, elsif)
		}
		if d.ElseBody != nil {
			sb.WriteString(" (else")
			p.stmts(sb, d.ElseBody)
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	case ElsifNode:
		sb.WriteString("(elsif ")
		p.write(sb, d.Cond)
		p.stmts(sb, d.Body)
		sb.WriteByte(')')
	case ReturnNode:
		if d.Expr == nil {
			sb.WriteString("(return)")
		} else {
			p.list(sb, "return", d.Expr)
		}
	default:
		sb.WriteString("(?)")
	}
	if p.Types != nil && node.Type.IsExpr() {
		sb.WriteByte(':')
		sb.WriteString(symtab.TypeName(p.Types, node.Typ))
	}
}

func (p Printer) list(sb *strings.Builder, head string, items ...*Node) {
	sb.WriteByte('(')
	sb.WriteString(head)
	for _, item := range items {
		sb.WriteByte(' ')
		p.write(sb, item)
	}
	sb.WriteByte(')')
}

// stmts writes the statements of a (possibly nil) statement list inline
func (p Printer) stmts(sb *strings.Builder, list *Node) {
	if list == nil {
		return
	}
	for _, stmt := range list.Data.(StmtListNode).Stmts {
		sb.WriteByte(' ')
		p.write(sb, stmt)
	}
}

// FormatReal prints a real so that it always reads back as a real
func FormatReal(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Fingerprint hashes the typed rendering of a tree. Two trees with the same
// fingerprint print identically, including their resolved types.
func Fingerprint(node *Node) uint64 {
	return xxhash.Sum64String(Printer{Types: fingerprintTypes{}}.Format(node))
}

// fingerprintTypes names types by handle so fingerprints need no table
type fingerprintTypes struct{}

func (fingerprintTypes) Resolve(idx symtab.Index) *symtab.Symbol {
	return &symtab.Symbol{Name: "t" + strconv.Itoa(int(idx))}
}
