package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/pkg/errors"
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/symtab"
)

func parse(t *testing.T, src string) (*ast.Program, *symtab.Table) {
	t.Helper()
	tab := symtab.New()
	prog, err := ParseSource([]rune(src), 0, tab)
	be.Err(t, err, nil)
	return prog, tab
}

func parseErr(t *testing.T, src string) *SyntaxError {
	t.Helper()
	_, err := ParseSource([]rune(src), 0, symtab.New())
	be.True(t, err != nil)
	se, ok := errors.Cause(err).(*SyntaxError)
	be.True(t, ok)
	return se
}

func bodyNames(tab *symtab.Table, prog *ast.Program) []string {
	var names []string
	for _, b := range prog.Bodies {
		names = append(names, tab.Resolve(b.Env).Name)
	}
	return names
}

func TestParseDeclarations(t *testing.T) {
	prog, tab := parse(t, `
(program demo
  (const N integer 7)
  (const PI real 3.5)
  (const ONE real 1)
  (type money)
  (var m money)
  (var a (array real 10))
  (body))`)

	be.Equal(t, prog.Name, "demo")
	be.Equal(t, tab.Resolve(prog.Env).Kind, symtab.KindProcedure)

	n, ok := tab.Lookup("N")
	be.True(t, ok)
	be.Equal(t, tab.Resolve(n).Kind, symtab.KindConstant)
	be.Equal(t, tab.Resolve(n).Value.Int, int64(7))

	pi, _ := tab.Lookup("PI")
	be.Equal(t, tab.Resolve(pi).Type, symtab.Real)
	be.Equal(t, tab.Resolve(pi).Value.Real, 3.5)

	one, _ := tab.Lookup("ONE")
	be.Equal(t, tab.Resolve(one).Value.Real, 1.0)

	money, _ := tab.Lookup("money")
	m, _ := tab.Lookup("m")
	be.Equal(t, tab.Resolve(m).Type, money)

	a, _ := tab.Lookup("a")
	be.Equal(t, tab.Resolve(a).Type, symtab.Real)
	be.Equal(t, tab.Resolve(a).ArrayLen, int64(10))

	be.Equal(t, len(prog.Bodies), 1)
	be.True(t, prog.Bodies[0].Stmts == nil)
}

func TestParseBodiesInCompletionOrder(t *testing.T) {
	prog, tab := parse(t, `
(program outer
  (function f ((x integer) (y real)) real
    (procedure inner () (body))
    (body (return y)))
  (procedure p () (body))
  (body (call p)))`)

	want := []string{"inner", "f", "p", "outer"}
	if diff := cmp.Diff(want, bodyNames(tab, prog)); diff != "" {
		t.Errorf("body order mismatch (-want +got):\n%s", diff)
	}

	f := tab.Resolve(prog.Bodies[1].Env)
	be.Equal(t, f.Kind, symtab.KindFunction)
	be.Equal(t, f.Type, symtab.Real)
	be.Equal(t, len(f.Params), 2)
	be.Equal(t, tab.Resolve(f.Params[0]).Type, symtab.Integer)
	be.True(t, tab.Resolve(f.Params[1]).IsParam)
	be.Equal(t, tab.Resolve(f.Params[1]).Level, 2)

	// parameters and nested routines are not visible from the program body
	_, ok := tab.Lookup("x")
	be.Equal(t, ok, false)
}

func TestParseStatements(t *testing.T) {
	prog, _ := parse(t, `
(program s
  (var x integer)
  (var r real)
  (var v (array integer 4))
  (function sq ((n integer)) integer (body (return (* n n))))
  (procedure show ((q real)) (body (return)))
  (body
    (:= x (+ 1 2))
    (:= (aref v x) (call sq x))
    (call show r)
    (while (> x 0) (:= x (- x 1)))
    (if (= x 0) (then (:= r 1.5)) (elsif (< x 0) (:= r (neg r))) (else))
    (if (not x) (then))))`)

	want := strings.Join([]string{
		"(:= x (+ 1 2))",
		"(:= (aref v x) (call sq x))",
		"(call show r)",
		"(while (> x 0) (:= x (- x 1)))",
		"(if (= x 0) (then (:= r 1.5)) (elsif (< x 0) (:= r (neg r))))",
		"(if (not x) (then))",
	}, "\n")
	main := prog.Bodies[len(prog.Bodies)-1]
	if diff := cmp.Diff(want, ast.Format(main.Stmts)); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}

	stmts := main.Stmts.Data.(ast.StmtListNode).Stmts
	be.Equal(t, stmts[1].Data.(ast.AssignNode).Rhs.Type, ast.FuncCall)
	be.Equal(t, stmts[2].Type, ast.ProcCall)
	ifNode := stmts[4].Data.(ast.IfNode)
	be.Equal(t, len(ifNode.Elsifs), 1)
	be.True(t, ifNode.ElseBody == nil)
}

func TestParseOperatorPositions(t *testing.T) {
	prog, _ := parse(t, "(program p (var x integer)\n(body (:= x (div x 0))))")
	assign := prog.Bodies[0].Stmts.Data.(ast.StmtListNode).Stmts[0]
	div := assign.Data.(ast.AssignNode).Rhs
	be.Equal(t, div.Tok.Line, 2)
	be.Equal(t, div.Tok.Column, 14)
	be.Equal(t, div.Tok.Value, "div")
}

func TestParseRecursiveCall(t *testing.T) {
	prog, _ := parse(t, `(program p
  (function fact ((n integer)) integer
    (body (return (* n (call fact (- n 1))))))
  (body))`)
	be.Equal(t, len(prog.Bodies), 2)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"not a program", "(body)", "expected '(program ...)'"},
		{"undeclared", "(program p (body (:= y 1)))", "undeclared identifier 'y'"},
		{"undeclared type", "(program p (var x money) (body))", "undeclared type 'money'"},
		{"not a type", "(program p (var x integer) (var y x) (body))", "'x' is not a type"},
		{"void is not a type", "(program p (var x void) (body))", "'void' is not a type"},
		{"redeclaration", "(program p (var x integer) (var x real) (body))", "redeclaration of 'x'"},
		{"assign to constant", "(program p (const N integer 1) (body (:= N 2)))", "left side of ':='"},
		{"assign whole array", "(program p (var a (array integer 2)) (body (:= a 2)))", "left side of ':='"},
		{"index scalar", "(program p (var x integer) (body (:= x (aref x 1))))", "'x' is not an array"},
		{"function as statement", "(program p (function f () integer (body (return 1))) (body (call f)))", "'f' is a function, not a procedure"},
		{"procedure as value", "(program p (procedure q () (body)) (var x integer) (body (:= x (call q))))", "'q' is a procedure, not a function"},
		{"bare routine name", "(program p (procedure q () (body)) (var x integer) (body (:= x q)))", "procedure 'q' used as a value"},
		{"unknown operator", "(program p (var x integer) (body (:= x (pow x 2))))", "unknown operator 'pow'"},
		{"unknown statement", "(program p (body (loop)))", "unknown statement 'loop'"},
		{"real constant declared integer", "(program p (const N integer 1.5) (body))", "expected integer value for constant 'N'"},
		{"named type constant", "(program p (type t) (const N t 1) (body))", "constants must be integer or real"},
		{"array length", "(program p (var a (array integer 0)) (body))", "array length must be a positive integer"},
		{"missing body", "(program p (var x integer))", "expected a declaration or '(body ...)'"},
		{"unterminated", "(program p (var x integer) (body (:= x", "expected an expression, found end of file"},
		{"trailing input", "(program p (body)) (body)", "expected end of file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := parseErr(t, tt.src)
			if !strings.Contains(se.Msg, tt.msg) {
				t.Errorf("error %q does not contain %q", se.Msg, tt.msg)
			}
			be.True(t, se.Tok.HasPos() || se.Tok.Line == 0)
		})
	}
}

func TestParseErrorIsWrappedWithRoutine(t *testing.T) {
	_, err := ParseSource([]rune("(program p\n  (procedure q () (body (:= z 1)))\n  (body))"), 0, symtab.New())
	be.True(t, err != nil)
	be.True(t, strings.HasPrefix(err.Error(), "in program 'p': in procedure 'q': 2:"))
	se := errors.Cause(err).(*SyntaxError)
	be.Equal(t, se.Tok.Line, 2)
	be.Equal(t, se.Tok.Column, 29)
}
