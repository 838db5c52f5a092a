package optimizer

import (
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/token"
)

func truth(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// evalInteger computes l op r. A zero divisor is reported once at the
// operator and leaves the node standing.
func (o *Optimizer) evalInteger(node *ast.Node, op token.Type, l, r int64) (int64, bool) {
	var res int64
	switch op {
	case token.Plus:
		res = l + r
	case token.Minus:
		res = l - r
	case token.Star:
		res = l * r
	case token.And:
		res = truth(l != 0 && r != 0)
	case token.Or:
		res = truth(l != 0 || r != 0)
	case token.Div, token.Mod:
		if r == 0 {
			o.reportZeroDivisor(node, op)
			return 0, false
		}
		if op == token.Div {
			res = l / r
		} else {
			res = l % r
		}
	default:
		return 0, false
	}
	return o.wrap(res), true
}

func (o *Optimizer) reportZeroDivisor(node *ast.Node, op token.Type) {
	d := node.Data.(ast.BinaryOpNode)
	if d.ZeroDivReported {
		return
	}
	if op == token.Div {
		o.rep.Error(node.Tok, "compile-time division by zero")
	} else {
		o.rep.Error(node.Tok, "compile-time modulo by zero")
	}
	d.ZeroDivReported = true
	node.Data = d
}

// wrap truncates res to a 32-bit word on 32-bit targets.
func (o *Optimizer) wrap(res int64) int64 {
	if o.cfg.WordSize == 4 && o.cfg.IsFeatureEnabled(config.FeatWrapWord) {
		return int64(int32(res))
	}
	return res
}

// evalReal computes l op r for real operands. DIV and MOD are never folded
// on reals; AND and OR go through evalRealLogic.
func (o *Optimizer) evalReal(node *ast.Node, op token.Type, l, r float64) (float64, bool) {
	switch op {
	case token.Plus:
		return l + r, true
	case token.Minus:
		return l - r, true
	case token.Star:
		return l * r, true
	case token.Slash:
		if r == 0 {
			o.rep.Warn(config.WarnRealDivZero, node.Tok, "real division by zero folds to %s", ast.FormatReal(l/r))
		}
		return l / r, true
	}
	return 0, false
}

// evalRealLogic computes AND/OR on real operands. The result is a truth
// value, so it is an integer like the node it replaces.
func evalRealLogic(op token.Type, l, r float64) (int64, bool) {
	switch op {
	case token.And:
		return truth(l != 0 && r != 0), true
	case token.Or:
		return truth(l != 0 || r != 0), true
	}
	return 0, false
}
