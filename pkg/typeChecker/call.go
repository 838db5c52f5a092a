package typeChecker

import (
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/symtab"
)

// checkCall types the arguments of a function or procedure call, matches
// them against the callee's formals and returns the callee's type: the
// declared return type of a function, Void for a procedure.
func (tc *TypeChecker) checkCall(ctx *bodyContext, node *ast.Node) symtab.Index {
	d := node.Data.(ast.CallNode)
	for _, arg := range d.Args {
		tc.checkExpr(ctx, arg)
	}

	calleeIdx := d.Id.Data.(ast.IdentNode).Sym
	callee := tc.syms.Resolve(calleeIdx)
	if callee == nil {
		diag.Fatalf("call to '%s' is not bound to a symbol", d.Id.Data.(ast.IdentNode).Name)
	}
	var formals []symtab.Index
	switch callee.Kind {
	case symtab.KindFunction, symtab.KindProcedure:
		formals = callee.Params
	default:
		diag.Fatalf("call to '%s', which is a %s", callee.Name, callee.Kind)
	}
	d.Id.Typ = callee.Type

	if !tc.matchParams(formals, d.Args) {
		tc.callErrorOrWarn(node, callee, len(formals), len(d.Args))
	}
	return callee.Type
}

// matchParams pairs formals and actuals from the last one backwards but
// reconciles them leading pair first. It stops at the first pair it cannot
// reconcile, so only the pairs before a mismatch receive casts. Actuals are
// replaced in place.
func (tc *TypeChecker) matchParams(formals []symtab.Index, actuals []*ast.Node) bool {
	if len(formals) == 0 && len(actuals) == 0 {
		return true
	}
	if len(formals) == 0 || len(actuals) == 0 {
		return false
	}
	last := len(actuals) - 1
	if !tc.matchParams(formals[:len(formals)-1], actuals[:last]) {
		return false
	}

	formalType := tc.syms.Resolve(formals[len(formals)-1]).Type
	if actuals[last].Typ != formalType {
		if formalType != symtab.Real {
			return false
		}
		actuals[last] = ast.NewCast(actuals[last])
	}
	return true
}

func (tc *TypeChecker) callErrorOrWarn(node *ast.Node, callee *symtab.Symbol, nformals, nactuals int) {
	if nformals != nactuals {
		if tc.cfg.IsFeatureEnabled(config.FeatStrictCalls) {
			tc.rep.Error(node.Tok, "%s '%s' takes %d argument(s), %d given", callee.Kind, callee.Name, nformals, nactuals)
		} else {
			tc.rep.Warn(config.WarnCallArgs, node.Tok, "%s '%s' takes %d argument(s), %d given", callee.Kind, callee.Name, nformals, nactuals)
		}
		return
	}
	if tc.cfg.IsFeatureEnabled(config.FeatStrictCalls) {
		tc.rep.Error(node.Tok, "arguments of call to %s '%s' do not match its parameter types", callee.Kind, callee.Name)
	} else {
		tc.rep.Warn(config.WarnCallArgs, node.Tok, "arguments of call to %s '%s' do not match its parameter types", callee.Kind, callee.Name)
	}
}
