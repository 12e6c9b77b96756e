package irconv

import (
	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/bits"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// evalExpr converts the lowered expression rooted at exprID into an IR
// value, reading variable values out of cur. Width-promotion follows §4.2:
// binary arithmetic/compare/bitwise operands are zero-extended to a common
// width first (shift amounts are the exception, extended to 64 bits
// instead), and the logical operators lower to a zero-comparison followed
// by a bitwise op.
func (c *Converter) evalExpr(exprID ast.NodeID, cur *ctx) (ir.NodeID, error) {
	switch e := c.arena.Get(exprID).(type) {
	case *ast.VarRef:
		return cur.get(c.slot(e.Def)), nil

	case *ast.IntLiteral:
		return c.fn.NewLiteral(bits.FromUint64(e.Value, e.Width)), nil

	case *ast.LongIntLiteral:
		return c.fn.NewLiteral(packWords(e.Words)), nil

	case *ast.BitSlice:
		target, err := c.evalExpr(e.Target, cur)
		if err != nil {
			return 0, err
		}
		return c.fn.NewBitSlice(target, e.Lo, e.Hi-e.Lo+1), nil

	case *ast.Cast:
		inner, err := c.evalExpr(e.Expr, cur)
		if err != nil {
			return 0, err
		}
		return c.castTo(inner, e.Width), nil

	case *ast.UnaryExpr:
		return c.evalUnary(e, cur)

	case *ast.BinaryExpr:
		return c.evalBinary(e, cur)

	case *ast.BuiltinCall:
		return c.evalBuiltin(e, cur)

	default:
		return 0, diag.Errorf(diag.KindInternal, "irconv: unsupported expression kind %s", e.Kind())
	}
}

// packWords assembles a LongIntLiteral's words (least-significant word
// first, matching bits.Bits's own internal word order) into a single
// multiword Bits value.
func packWords(words []uint64) bits.Bits {
	if len(words) == 0 {
		return bits.Zero(0)
	}
	result := bits.FromUint64(words[len(words)-1], 64)
	for i := len(words) - 2; i >= 0; i-- {
		result = result.Concat(bits.FromUint64(words[i], 64))
	}
	return result
}

// castTo resizes value to width bits: zero-extends if growing, bit-slices
// down if shrinking, and is a no-op if already that width.
func (c *Converter) castTo(value ir.NodeID, width int) ir.NodeID {
	cur := c.fn.Get(value).Type().Width
	switch {
	case width == cur:
		return value
	case width > cur:
		return c.fn.NewZeroExtend(value, width)
	default:
		return c.fn.NewBitSlice(value, 0, width)
	}
}

func (c *Converter) evalUnary(e *ast.UnaryExpr, cur *ctx) (ir.NodeID, error) {
	x, err := c.evalExpr(e.Expr, cur)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case ast.UnNeg:
		w := c.fn.Get(x).Type().Width
		zero := c.fn.NewLiteral(bits.Zero(w))
		return c.fn.NewSub(zero, x), nil
	case ast.UnNot:
		w := c.fn.Get(x).Type().Width
		zero := c.fn.NewLiteral(bits.Zero(w))
		return c.fn.NewEq(x, zero), nil
	default:
		return 0, diag.Errorf(diag.KindInternal, "irconv: unknown unary operator")
	}
}

// promoteEqualWidth zero-extends whichever of a, b is narrower so both
// share the wider's width, per §4.2's default binary promotion rule.
func (c *Converter) promoteEqualWidth(a, b ir.NodeID) (ir.NodeID, ir.NodeID) {
	wa, wb := c.fn.Get(a).Type().Width, c.fn.Get(b).Type().Width
	switch {
	case wa < wb:
		return c.fn.NewZeroExtend(a, wb), b
	case wb < wa:
		return a, c.fn.NewZeroExtend(b, wa)
	default:
		return a, b
	}
}

func (c *Converter) evalBinary(e *ast.BinaryExpr, cur *ctx) (ir.NodeID, error) {
	lhs, err := c.evalExpr(e.Lhs, cur)
	if err != nil {
		return 0, err
	}
	rhs, err := c.evalExpr(e.Rhs, cur)
	if err != nil {
		return 0, err
	}

	switch e.Op {
	case ast.BinLogicalAnd, ast.BinLogicalOr:
		lb := c.toBool(lhs)
		rb := c.toBool(rhs)
		if e.Op == ast.BinLogicalAnd {
			return c.fn.NewAnd(lb, rb), nil
		}
		return c.fn.NewOr(lb, rb), nil

	case ast.BinShl:
		return c.fn.NewShll(lhs, c.castTo(rhs, 64)), nil
	case ast.BinShr:
		return c.fn.NewShrl(lhs, c.castTo(rhs, 64)), nil
	}

	lhs, rhs = c.promoteEqualWidth(lhs, rhs)
	switch e.Op {
	case ast.BinAdd:
		return c.fn.NewAdd(lhs, rhs), nil
	case ast.BinSub:
		return c.fn.NewSub(lhs, rhs), nil
	case ast.BinMul:
		return c.fn.NewUMul(lhs, rhs), nil
	case ast.BinDiv:
		return c.fn.NewUDiv(lhs, rhs), nil
	case ast.BinAnd:
		return c.fn.NewAnd(lhs, rhs), nil
	case ast.BinOr:
		return c.fn.NewOr(lhs, rhs), nil
	case ast.BinXor:
		// No dedicated xor op in the closed IR set; xor(a,b) = (a|b) & !(a&b).
		orv := c.fn.NewOr(lhs, rhs)
		andv := c.fn.NewAnd(lhs, rhs)
		return c.fn.NewAnd(orv, c.fn.NewNot(andv)), nil
	case ast.BinEq:
		return c.fn.NewEq(lhs, rhs), nil
	case ast.BinNe:
		return c.fn.NewNe(lhs, rhs), nil
	case ast.BinLt:
		return c.fn.NewUlt(lhs, rhs), nil
	case ast.BinLe:
		return c.fn.NewUle(lhs, rhs), nil
	case ast.BinGt:
		return c.fn.NewUgt(lhs, rhs), nil
	case ast.BinGe:
		return c.fn.NewUge(lhs, rhs), nil
	case ast.BinMod:
		return 0, diag.Errorf(diag.KindUnimplemented, "irconv: modulo has no corresponding IR operation")
	default:
		return 0, diag.Errorf(diag.KindInternal, "irconv: unknown binary operator")
	}
}

// toBool reduces value to a 1-bit "is nonzero" predicate, the lowering
// §4.2 specifies for logical && / ||'s operands.
func (c *Converter) toBool(value ir.NodeID) ir.NodeID {
	w := c.fn.Get(value).Type().Width
	if w == 1 {
		return value
	}
	zero := c.fn.NewLiteral(bits.Zero(w))
	return c.fn.NewNe(value, zero)
}

func (c *Converter) evalBuiltin(e *ast.BuiltinCall, cur *ctx) (ir.NodeID, error) {
	if observationalBuiltins[e.Name] {
		// §4.2 / DESIGN.md decision #1: these are silently no-ops that still
		// need *some* value when they appear in expression position; model
		// them as a zero-width-adjacent single-bit zero so callers that
		// discard the result (the common case, via ExprEval) see nothing.
		return c.fn.NewLiteral(bits.Zero(1)), nil
	}
	args := make([]ir.NodeID, 0, len(e.Args))
	for _, argID := range e.Args {
		v, err := c.evalExpr(argID, cur)
		if err != nil {
			return 0, err
		}
		args = append(args, v)
	}
	width := 32
	if len(args) > 0 {
		width = c.fn.Get(args[0]).Type().Width
	}
	return c.fn.NewInvoke(e.Name, args, width, true), nil
}
