package semantic

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/casefile"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/parser"
	"github.com/xplshn/pasem/pkg/symtab"
)

type analysed struct {
	prog *ast.Program
	tab  *symtab.Table
	sink *diag.Sink
	res  Result
}

func analyse(t *testing.T, src string, cfg *config.Config) analysed {
	t.Helper()
	tab := symtab.New()
	prog, err := parser.ParseSource([]rune(src), 0, tab)
	be.Err(t, err, nil)
	sink := diag.NewSink(cfg, io.Discard)
	res := New(cfg, tab, sink).Run(prog)
	return analysed{prog, tab, sink, res}
}

// render prints every body as a "; name" line followed by its typed
// statements.
func (a analysed) render() string {
	var lines []string
	for _, body := range a.prog.Bodies {
		lines = append(lines, "; "+a.tab.Resolve(body.Env).Name)
		if body.Stmts != nil {
			lines = append(lines, ast.FormatTyped(body.Stmts, a.tab))
		}
	}
	return strings.Join(lines, "\n")
}

func TestRunResult(t *testing.T) {
	src := `(program main
  (var x integer)
  (function f () integer (body (return (+ 1 1))))
  (procedure q () (body (:= x 1.5)))
  (body (:= x (call f))))`
	a := analyse(t, src, config.NewConfig())

	be.Equal(t, len(a.res.Bodies), 3)
	names := []string{a.res.Bodies[0].Name, a.res.Bodies[1].Name, a.res.Bodies[2].Name}
	if diff := cmp.Diff([]string{"f", "q", "main"}, names); diff != "" {
		t.Errorf("body order mismatch (-want +got):\n%s", diff)
	}

	f, q, main := a.res.Bodies[0], a.res.Bodies[1], a.res.Bodies[2]
	be.True(t, f.Checked != f.Folded)
	be.Equal(t, f.ErrorsAdded, 0)
	be.Equal(t, q.Checked, q.Folded)
	be.Equal(t, q.ErrorsAdded, 1)
	be.Equal(t, main.Checked, main.Folded)
	be.Equal(t, main.Env, a.prog.Env)

	be.Equal(t, a.res.Errors, 1)
	be.Equal(t, a.res.OK(), false)
}

func TestRunWithoutFolding(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatFold, false)
	a := analyse(t, "(program p (var x integer) (body (:= x (+ 1 1))))", cfg)
	be.True(t, a.res.OK())
	be.Equal(t, a.res.Bodies[0].Checked, a.res.Bodies[0].Folded)
	be.Equal(t, a.render(), "; p\n(:= x:integer (+ 1:integer 1:integer):integer)")
}

func TestRunCountsWarnings(t *testing.T) {
	a := analyse(t, "(program p (var r real) (body (:= r (/ 2.0 0.0))))", config.NewConfig())
	be.True(t, a.res.OK())
	be.Equal(t, a.res.Warnings, 1)
}

func TestRunEmptyProgram(t *testing.T) {
	a := analyse(t, "(program p (body))", config.NewConfig())
	be.True(t, a.res.OK())
	be.Equal(t, a.render(), "; p")
}

// TestCases runs the Markdown test cases under testdata. Each case is
// analysed twice: once with folding disabled for its checked assertions
// and once as its flags say for the rest.
func TestCases(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.md"))
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		content, err := os.ReadFile(file)
		be.Err(t, err, nil)
		cases, err := casefile.Extract(content)
		be.Err(t, err, nil)

		for _, tc := range cases {
			t.Run(filepath.Base(file)+"/"+tc.Name, func(t *testing.T) {
				runCase(t, tc)
			})
		}
	}
}

func runCase(t *testing.T, tc casefile.TestCase) {
	cfg := config.NewConfig()
	cfg.ProcessFlagString(tc.Flags)
	full := analyse(t, tc.Input, cfg)

	for _, as := range tc.Assertions {
		var got string
		switch as.Type {
		case casefile.AssertionChecked:
			checkOnly := config.NewConfig()
			checkOnly.ProcessFlagString(tc.Flags)
			checkOnly.SetFeature(config.FeatFold, false)
			got = analyse(t, tc.Input, checkOnly).render()
		case casefile.AssertionFolded:
			got = full.render()
		case casefile.AssertionDiagnostics:
			got = strings.Join(full.sink.Messages(), "\n")
		}
		if diff := cmp.Diff(as.Content, got); diff != "" {
			t.Errorf("line %d: %s mismatch (-want +got):\n%s", as.Line, as.Type, diff)
		}
	}
}
