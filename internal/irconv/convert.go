package irconv

import (
	"fmt"

	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/bits"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// convertBlock threads ctx and the accumulated path predicate through a
// statement list, returning the context after the last statement. Return
// statements are recorded into c.returns and otherwise leave ctx unchanged,
// per §4.2: "Return, Nop: context unchanged."
func (c *Converter) convertBlock(stmts []ast.NodeID, cur ctx, pathCond ir.NodeID) (ctx, error) {
	for _, stmtID := range stmts {
		var err error
		cur, err = c.convertStmt(stmtID, cur, pathCond)
		if err != nil {
			return ctx{}, err
		}
	}
	return cur, nil
}

func (c *Converter) convertStmt(stmtID ast.NodeID, cur ctx, pathCond ir.NodeID) (ctx, error) {
	switch s := c.arena.Get(stmtID).(type) {
	case *ast.Block:
		return c.convertBlock(s.Stmts, cur, pathCond)

	case *ast.Nop:
		return cur, nil

	case *ast.Return:
		c.returns = append(c.returns, returnRecord{predicate: pathCond, snapshot: cur.clone()})
		return cur, nil

	case *ast.ExprEval:
		if bc, ok := c.arena.Get(s.Expr).(*ast.BuiltinCall); ok && observationalBuiltins[bc.Name] {
			return cur, nil
		}
		if _, err := c.evalExpr(s.Expr, &cur); err != nil {
			return ctx{}, err
		}
		return cur, nil

	case *ast.Assign:
		return c.convertAssign(s, cur)

	case *ast.If:
		return c.convertIf(s, cur, pathCond)

	case *ast.IfElse:
		return c.convertIfElse(s, cur, pathCond)

	default:
		return ctx{}, fmt.Errorf("irconv: unexpected statement kind %s", s.Kind())
	}
}

func (c *Converter) convertAssign(s *ast.Assign, cur ctx) (ctx, error) {
	switch lv := c.arena.Get(s.Lvalue).(type) {
	case *ast.VarRef:
		val, err := c.evalExpr(s.Rhs, &cur)
		if err != nil {
			return ctx{}, err
		}
		cur.set(c.slot(lv.Def), val)
		return cur, nil

	case *ast.BitSlice:
		target, ok := c.arena.Get(lv.Target).(*ast.VarRef)
		if !ok {
			return ctx{}, fmt.Errorf("irconv: bit-slice assignment target is not a lowered variable reference")
		}
		val, err := c.evalExpr(s.Rhs, &cur)
		if err != nil {
			return ctx{}, err
		}
		slot := c.slot(target.Def)
		updated := c.fn.NewBitSliceUpdate(cur.get(slot), val, lv.Lo)
		cur.set(slot, updated)
		return cur, nil

	default:
		return ctx{}, fmt.Errorf("irconv: unsupported assignment lvalue kind %s", lv.Kind())
	}
}

func (c *Converter) convertIf(s *ast.If, cur ctx, pathCond ir.NodeID) (ctx, error) {
	cond, err := c.evalExpr(s.Cond, &cur)
	if err != nil {
		return ctx{}, err
	}
	thenPred := c.fn.NewAnd(pathCond, cond)

	thenBlock := c.arena.Get(s.Then).(*ast.Block)
	thenCtx, err := c.convertBlock(thenBlock.Stmts, cur.clone(), thenPred)
	if err != nil {
		return ctx{}, err
	}

	modified := c.modifiedVars(thenBlock.Stmts)
	merged := cur.clone()
	for defID := range modified {
		slot := c.slot(defID)
		merged.set(slot, c.fn.NewSelect(cond, thenCtx.get(slot), cur.get(slot)))
	}
	return merged, nil
}

func (c *Converter) convertIfElse(s *ast.IfElse, cur ctx, pathCond ir.NodeID) (ctx, error) {
	cond, err := c.evalExpr(s.Cond, &cur)
	if err != nil {
		return ctx{}, err
	}
	thenPred := c.fn.NewAnd(pathCond, cond)
	notCond := c.fn.NewNot(cond)
	elsePred := c.fn.NewAnd(pathCond, notCond)

	thenBlock := c.arena.Get(s.Then).(*ast.Block)
	elseBlock := c.arena.Get(s.Else).(*ast.Block)

	thenCtx, err := c.convertBlock(thenBlock.Stmts, cur.clone(), thenPred)
	if err != nil {
		return ctx{}, err
	}
	elseCtx, err := c.convertBlock(elseBlock.Stmts, cur.clone(), elsePred)
	if err != nil {
		return ctx{}, err
	}

	modified := c.modifiedVars(thenBlock.Stmts)
	for defID := range c.modifiedVars(elseBlock.Stmts) {
		modified[defID] = true
	}

	merged := cur.clone()
	for defID := range modified {
		slot := c.slot(defID)
		merged.set(slot, c.fn.NewSelect(cond, thenCtx.get(slot), elseCtx.get(slot)))
	}
	return merged, nil
}

// modifiedVars collects every FakeVarDef assigned anywhere within stmts,
// including inside nested blocks and conditionals, so an If/IfElse merge
// knows which outer-context slots need a Select even when the assignment
// is buried several statements deep.
func (c *Converter) modifiedVars(stmts []ast.NodeID) map[ast.NodeID]bool {
	out := map[ast.NodeID]bool{}
	for _, stmtID := range stmts {
		c.arena.Walk(ast.InvalidNode, stmtID, func(_, id ast.NodeID) {
			assign, ok := c.arena.Get(id).(*ast.Assign)
			if !ok {
				return
			}
			switch lv := c.arena.Get(assign.Lvalue).(type) {
			case *ast.VarRef:
				out[lv.Def] = true
			case *ast.BitSlice:
				if target, ok := c.arena.Get(lv.Target).(*ast.VarRef); ok {
					out[target.Def] = true
				}
			}
		})
	}
	return out
}

// exitMerge builds the final return-value tuple per §4.2's exit-merge
// algorithm: concatenate every recorded Return's hit predicate (in
// encounter order) into one selector, one_hot it (gaining an implicit
// highest bit standing for "no return hit" i.e. fallthrough), then for
// every global variable one_hot_sel across [each return's snapshot...,
// the fallthrough context] and pack the results into a Tuple.
func (c *Converter) exitMerge(fallthroughCtx ctx) ir.NodeID {
	predicates := make([]ir.NodeID, len(c.returns))
	for i, r := range c.returns {
		predicates[i] = r.predicate
	}

	var selector ir.NodeID
	if len(predicates) == 0 {
		selector = c.fn.NewOneHot(c.fn.NewLiteral(bits.Zero(0)), false)
	} else {
		// NewConcat packs most-significant-first; reverse so return i lands
		// on selector bit i regardless of concat order.
		rev := make([]ir.NodeID, len(predicates))
		for i, p := range predicates {
			rev[len(predicates)-1-i] = p
		}
		concatenated := c.fn.NewConcat(rev...)
		selector = c.fn.NewOneHot(concatenated, true)
	}

	globals := make([]ast.NodeID, 0, len(c.varOrder))
	for _, defID := range c.varOrder {
		if c.isGlobal(defID) {
			globals = append(globals, defID)
		}
	}

	results := make([]ir.NodeID, 0, len(globals))
	for _, defID := range globals {
		slot := c.slot(defID)
		cases := make([]ir.NodeID, 0, len(c.returns)+1)
		for _, r := range c.returns {
			cases = append(cases, r.snapshot.get(slot))
		}
		cases = append(cases, fallthroughCtx.get(slot))
		results = append(results, c.fn.NewOneHotSelect(selector, cases))
	}
	return c.fn.NewTuple(results...)
}
