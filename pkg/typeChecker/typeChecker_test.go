package typeChecker

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/parser"
	"github.com/xplshn/pasem/pkg/symtab"
)

type checked struct {
	prog *ast.Program
	tab  *symtab.Table
	sink *diag.Sink
}

func check(t *testing.T, src, flags string) checked {
	t.Helper()
	tab := symtab.New()
	prog, err := parser.ParseSource([]rune(src), 0, tab)
	be.Err(t, err, nil)

	cfg := config.NewConfig()
	cfg.ProcessFlagString(flags)
	sink := diag.NewSink(cfg, io.Discard)
	tc := NewTypeChecker(tab, sink, cfg)
	for _, body := range prog.Bodies {
		tc.CheckBody(body.Env, body.Stmts)
	}
	return checked{prog, tab, sink}
}

// mainBody prints the typed statements of the program body
func (c checked) mainBody() string {
	return ast.FormatTyped(c.prog.Bodies[len(c.prog.Bodies)-1].Stmts, c.tab)
}

func (c checked) messages() []string {
	var msgs []string
	for _, d := range c.sink.Diagnostics() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestCheckInsertsCasts(t *testing.T) {
	c := check(t, `
(program p
  (var x integer)
  (var r real)
  (var v (array real 3))
  (body
    (:= r (+ x 2.5))
    (:= r x)
    (:= x (* x 2))
    (:= (aref v 1) (- 1 x))
    (:= r (/ x 2))
    (:= x (< x 2.5))))`, "")

	want := strings.Join([]string{
		"(:= r:real (+ (cast x:integer):real 2.5:real):real)",
		"(:= r:real (cast x:integer):real)",
		"(:= x:integer (* x:integer 2:integer):integer)",
		"(:= (aref v:real 1:integer):real (cast (- 1:integer x:integer):integer):real)",
		"(:= r:real (/ (cast x:integer):real (cast 2:integer):real):real)",
		"(:= x:integer (< (cast x:integer):real 2.5:real):integer)",
	}, "\n")
	if diff := cmp.Diff(want, c.mainBody()); diff != "" {
		t.Errorf("typed tree mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, c.sink.ErrorCount(), 0)
	be.Equal(t, c.sink.WarningCount(), 0)
}

func TestCheckStatementsAreVoid(t *testing.T) {
	c := check(t, "(program p (var x integer) (body (while x (:= x 0)) (if x (then (return)))))", "")
	stmts := c.prog.Bodies[0].Stmts
	be.Equal(t, stmts.Typ, symtab.Void)
	for _, stmt := range stmts.Data.(ast.StmtListNode).Stmts {
		be.Equal(t, stmt.Typ, symtab.Void)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"real assigned to integer",
			"(program p (var x integer) (body (:= x 1.5)))",
			[]string{"cannot assign a real value to an integer variable"},
		},
		{
			"slash is always real",
			"(program p (var x integer) (body (:= x (/ 4 2))))",
			[]string{"cannot assign a real value to an integer variable"},
		},
		{
			"while condition",
			"(program p (var r real) (body (while r (:= r 0.0))))",
			[]string{"while condition must be of type integer, not 'real'"},
		},
		{
			"if condition",
			"(program p (var r real) (body (if r (then))))",
			[]string{"if condition must be of type integer, not 'real'"},
		},
		{
			"elsif condition",
			"(program p (var r real) (body (if 1 (then) (elsif r))))",
			[]string{"elsif condition must be of type integer, not 'real'"},
		},
		{
			"real index",
			"(program p (var v (array integer 2)) (var x integer) (body (:= x (aref v 1.0))))",
			[]string{"array index must be of type integer, not 'real'"},
		},
		{
			"not on real",
			"(program p (var x integer) (body (:= x (not 1.5))))",
			[]string{"operand of NOT must be of type integer, not 'real'"},
		},
		{
			"div reports right operand first",
			"(program p (var x integer) (body (:= x (div 1.5 2.5))))",
			[]string{
				"right operand of DIV must be of type integer, not 'real'",
				"left operand of DIV must be of type integer, not 'real'",
			},
		},
		{
			"mod left operand",
			"(program p (var x integer) (body (:= x (mod 1.5 2))))",
			[]string{"left operand of MOD must be of type integer, not 'real'"},
		},
		{
			"and on named type",
			"(program p (type t) (var m t) (var x integer) (body (:= x (and m 1))))",
			[]string{"left operand of AND must be of type integer, not 't'"},
		},
		{
			"procedure returns a value",
			"(program p (procedure q () (body (return 1))) (body))",
			[]string{"procedure 'q' may not return a value"},
		},
		{
			"program returns a value",
			"(program p (body (return 1)))",
			[]string{"procedure 'p' may not return a value"},
		},
		{
			"function returns nothing",
			"(program p (function f () integer (body (return))) (body))",
			[]string{"function 'f' must return a value"},
		},
		{
			"function returns wrong type",
			"(program p (function f () integer (body (return 1.5))) (body))",
			[]string{"function 'f' returns 'integer', not 'real'"},
		},
		{
			"integer is not widened on return",
			"(program p (function f () real (body (return 1))) (body))",
			[]string{"function 'f' returns 'real', not 'integer'"},
		},
		{
			"function without return",
			"(program p (var x integer) (function f () integer (body (:= x 1))) (body))",
			[]string{"function 'f' must return a value"},
		},
		{
			"function with empty body",
			"(program p (function f () integer (body)) (body))",
			[]string{"function 'f' must return a value"},
		},
		{
			"argument count",
			"(program p (procedure q ((a integer)) (body)) (body (call q)))",
			[]string{"procedure 'q' takes 1 argument(s), 0 given"},
		},
		{
			"argument type",
			"(program p (procedure q ((a integer)) (body)) (body (call q 1.5)))",
			[]string{"arguments of call to procedure 'q' do not match its parameter types"},
		},
		{
			"function argument count",
			"(program p (function f ((a real)) real (body (return a))) (var r real) (body (:= r (call f 1 2))))",
			[]string{"function 'f' takes 1 argument(s), 2 given"},
		},
		{
			"return state does not leak between bodies",
			"(program p (function f () integer (body (return 1))) (function g () integer (body)) (body))",
			[]string{"function 'g' must return a value"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := check(t, tt.src, "")
			if diff := cmp.Diff(tt.want, c.messages()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckNestedReturnCounts(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"inside if", "(program p (function f ((n integer)) integer (body (if n (then (return 1))))) (body))"},
		{"inside elsif", "(program p (function f ((n integer)) integer (body (if n (then) (elsif (> n 1) (return 2))))) (body))"},
		{"inside else", "(program p (function f ((n integer)) integer (body (if n (then) (else (return 3))))) (body))"},
		{"inside while", "(program p (function f ((n integer)) integer (body (while n (return n)))) (body))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := check(t, tt.src, "")
			be.Equal(t, len(c.sink.Diagnostics()), 0)
		})
	}
}

func TestCheckErrorPositions(t *testing.T) {
	c := check(t, "(program p (var x integer)\n(body (:= x (div 1.5 2))))", "")
	diags := c.sink.Diagnostics()
	be.Equal(t, len(diags), 1)
	be.Equal(t, diags[0].Tok.Line, 2)
	be.Equal(t, diags[0].Tok.Column, 14)

	// an empty function body has nowhere to point
	c = check(t, "(program p (function f () integer (body)) (body))", "")
	be.Equal(t, c.sink.Diagnostics()[0].Tok.HasPos(), false)
}

func TestCheckCallCastsTrailingArguments(t *testing.T) {
	src := "(program p (procedure q ((a integer) (b real) (c real)) (body)) (var x integer) (body (call q x x 2.5)))"
	c := check(t, src, "")
	be.Equal(t, c.mainBody(), "(call q:void x:integer (cast x:integer):real 2.5:real)")
	be.Equal(t, c.sink.ErrorCount(), 0)

	// matching stops at the first bad pair, so nothing after it is cast
	src = "(program p (procedure q ((a integer) (b real) (c real)) (body)) (var x integer) (body (call q 1.5 x x)))"
	c = check(t, src, "-Fno-strict-calls")
	be.Equal(t, c.mainBody(), "(call q:void 1.5:real x:integer x:integer)")
}

func TestCheckNonStrictCalls(t *testing.T) {
	src := "(program p (procedure q ((a integer)) (body)) (body (call q 1 2)))"

	c := check(t, src, "-Fno-strict-calls")
	be.Equal(t, c.sink.ErrorCount(), 0)
	be.Equal(t, c.sink.WarningCount(), 0)

	c = check(t, src, "-Fno-strict-calls -Wcall-args")
	be.Equal(t, c.sink.ErrorCount(), 0)
	be.Equal(t, c.sink.WarningCount(), 1)
	be.Equal(t, c.messages()[0], "procedure 'q' takes 1 argument(s), 2 given")
	be.Equal(t, c.sink.Diagnostics()[0].Warning, config.WarnCallArgs)
}

func TestCheckFunctionCall(t *testing.T) {
	c := check(t, `(program p
  (function half ((n integer)) real (body (return (* n 0.5))))
  (var r real)
  (body (:= r (call half 3))))`, "")
	be.Equal(t, c.sink.ErrorCount(), 0)
	be.Equal(t, ast.FormatTyped(c.prog.Bodies[0].Stmts, c.tab), "(return (* (cast n:integer):real 0.5:real):real)")
	be.Equal(t, c.mainBody(), "(:= r:real (call half:real 3:integer):real)")
}

func TestCheckNamedTypes(t *testing.T) {
	c := check(t, "(program p (type money) (var m money) (var n money) (body (:= m n)))", "")
	be.Equal(t, c.mainBody(), "(:= m:money n:money)")
	be.Equal(t, c.sink.ErrorCount(), 0)
}

func TestCheckRealEqualityWarning(t *testing.T) {
	src := "(program p (var r real) (var x integer) (body (:= x (= r 1)) (:= x (< r 1))))"

	c := check(t, src, "")
	be.Equal(t, c.sink.ErrorCount(), 0)
	if diff := cmp.Diff([]string{"comparing real values with '=' is exact"}, c.messages()); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, c.sink.Diagnostics()[0].Warning, config.WarnExtra)

	c = check(t, src, "-Wno-extra")
	be.Equal(t, c.sink.WarningCount(), 0)
}

func TestCheckBodyWithUnknownEnvironmentPanics(t *testing.T) {
	cfg := config.NewConfig()
	tc := NewTypeChecker(symtab.New(), diag.NewSink(cfg, io.Discard), cfg)
	defer func() {
		_, ok := recover().(*diag.InternalError)
		be.True(t, ok)
	}()
	tc.CheckBody(symtab.NoIndex, nil)
	t.Fatal("CheckBody returned")
}
