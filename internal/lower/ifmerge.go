package lower

import "github.com/hlsc-project/hlsc/internal/ast"

// NestedIfMerge implements §4.1 step 6 (fixed-point): if(e1){ if(e2){S} }
// becomes if(e1 ∧ e2){S}, provided the inner if is the only statement of
// the outer then.
type NestedIfMerge struct{}

func (*NestedIfMerge) Name() string { return "nested-if-merge" }

func (*NestedIfMerge) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		matches := a.Find(func(n ast.Node) bool {
			_, ok := n.(*ast.If)
			return ok
		})
		merged := false
		for _, m := range matches {
			outer := a.Get(m.ID).(*ast.If)
			thenBlk, ok := a.Get(outer.Then).(*ast.Block)
			if !ok || len(thenBlk.Stmts) != 1 {
				continue
			}
			inner, ok := a.Get(thenBlk.Stmts[0]).(*ast.If)
			if !ok {
				continue
			}
			and := a.NewBinaryExpr(ast.BinLogicalAnd, outer.Cond, inner.Cond)
			merged2 := a.NewIf(and, inner.Then)
			a.ReplaceChild(m.Parent, m.ID, merged2)
			ctx.recordProvenance(merged2, m.ID)
			merged = true
			break
		}
		if !merged {
			return nil
		}
	}
}
