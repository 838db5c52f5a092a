// Package semantic runs the semantic passes over a parsed program: every
// body is type checked and then folded before the next one is looked at.
package semantic

import (
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/optimizer"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/typeChecker"
)

type Analyzer struct {
	cfg  *config.Config
	syms symtab.Resolver
	sink *diag.Sink
	tc   *typeChecker.TypeChecker
	opt  *optimizer.Optimizer
}

// BodyResult describes one analysed body. The fingerprints hash the typed
// tree right after type checking and after folding; they are equal when
// folding changed nothing.
type BodyResult struct {
	Env         symtab.Index
	Name        string
	Checked     uint64
	Folded      uint64
	ErrorsAdded int
}

type Result struct {
	Bodies   []BodyResult
	Errors   int
	Warnings int
}

func (r Result) OK() bool { return r.Errors == 0 }

func New(cfg *config.Config, syms symtab.Resolver, sink *diag.Sink) *Analyzer {
	return &Analyzer{
		cfg:  cfg,
		syms: syms,
		sink: sink,
		tc:   typeChecker.NewTypeChecker(syms, sink, cfg),
		opt:  optimizer.NewOptimizer(syms, sink, cfg),
	}
}

// Run analyses prog's bodies in declaration order. User errors are sent to
// the sink and never stop the run; internal errors panic with
// *diag.InternalError.
func (a *Analyzer) Run(prog *ast.Program) Result {
	var res Result
	for _, body := range prog.Bodies {
		res.Bodies = append(res.Bodies, a.runBody(body))
	}
	res.Errors, res.Warnings = a.sink.ErrorCount(), a.sink.WarningCount()
	return res
}

func (a *Analyzer) runBody(body *ast.Body) BodyResult {
	before := a.sink.ErrorCount()
	env := a.syms.Resolve(body.Env)
	if env == nil {
		diag.Fatalf("body environment %d is not in the symbol table", body.Env)
	}
	br := BodyResult{Env: body.Env, Name: env.Name}

	a.tc.CheckBody(body.Env, body.Stmts)
	br.Checked = ast.Fingerprint(body.Stmts)

	if a.cfg.IsFeatureEnabled(config.FeatFold) {
		a.opt.FoldBody(body.Stmts)
	}
	br.Folded = ast.Fingerprint(body.Stmts)
	br.ErrorsAdded = a.sink.ErrorCount() - before
	return br
}
