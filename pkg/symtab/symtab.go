// Package symtab holds the declarations the semantic passes query: every
// variable, constant, named type, function and procedure of a compilation
// unit, addressed by an Index handle.
package symtab

import (
	"fmt"

	"github.com/xplshn/pasem/pkg/token"
)

// Index is an opaque handle to a symbol. Type handles are indices of
// named-type symbols, so two types are the same type iff their indices are
// equal.
type Index int

// Pre-installed handles
const (
	NoIndex Index = iota
	Void
	Integer
	Real
)

type Kind int

const (
	KindVariable Kind = iota
	KindConstant
	KindNameType
	KindFunction
	KindProcedure
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindNameType:
		return "type"
	case KindFunction:
		return "function"
	case KindProcedure:
		return "procedure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is the compile-time value of a constant; Int is meaningful for
// integer constants and Real for real ones.
type Value struct {
	Int  int64
	Real float64
}

type Symbol struct {
	Name  string
	Kind  Kind
	Type  Index // declared type; return type for functions; Void for procedures
	Level int
	Tok   token.Token
	Value Value
	// Formal parameters of a function or procedure, in declaration order
	Params   []Index
	ArrayLen int64
	IsParam  bool
}

// Resolver is the read-only view the semantic passes need.
type Resolver interface {
	Resolve(idx Index) *Symbol
}

type Scope struct {
	names  map[string]Index
	Parent *Scope
}

func newScope(parent *Scope) *Scope { return &Scope{names: make(map[string]Index), Parent: parent} }

type Table struct {
	symbols      []*Symbol
	currentScope *Scope
	level        int
}

func New() *Table {
	t := &Table{currentScope: newScope(nil)}
	t.symbols = append(t.symbols, &Symbol{Name: "<none>", Kind: KindNameType})
	for _, name := range []string{"void", "integer", "real"} {
		if _, err := t.Declare(&Symbol{Name: name, Kind: KindNameType}); err != nil {
			panic(err)
		}
	}
	for _, idx := range []Index{Void, Integer, Real} {
		t.symbols[idx].Type = Void
	}
	return t
}

func (t *Table) OpenScope() {
	t.currentScope = newScope(t.currentScope)
	t.level++
}

func (t *Table) CloseScope() {
	if t.currentScope.Parent != nil {
		t.currentScope = t.currentScope.Parent
		t.level--
	}
}

func (t *Table) Level() int { return t.level }

// Declare installs sym in the current scope and returns its handle.
func (t *Table) Declare(sym *Symbol) (Index, error) {
	if prev, ok := t.currentScope.names[sym.Name]; ok {
		return prev, fmt.Errorf("redeclaration of '%s' (previously a %s)", sym.Name, t.symbols[prev].Kind)
	}
	sym.Level = t.level
	idx := Index(len(t.symbols))
	t.symbols = append(t.symbols, sym)
	t.currentScope.names[sym.Name] = idx
	return idx, nil
}

// Lookup searches the open scopes from innermost outwards.
func (t *Table) Lookup(name string) (Index, bool) {
	for s := t.currentScope; s != nil; s = s.Parent {
		if idx, ok := s.names[name]; ok {
			return idx, true
		}
	}
	return NoIndex, false
}

func (t *Table) Resolve(idx Index) *Symbol {
	if idx <= NoIndex || int(idx) >= len(t.symbols) {
		return nil
	}
	return t.symbols[idx]
}

func (t *Table) Kind(idx Index) Kind { return t.symbols[idx].Kind }

func (t *Table) Len() int { return len(t.symbols) }

// TypeName renders a type handle for diagnostics.
func TypeName(r Resolver, idx Index) string {
	if sym := r.Resolve(idx); sym != nil {
		return sym.Name
	}
	return "<untyped>"
}
