package lower

import (
	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/diag"
)

// NestedBitSliceFlatten implements §4.1 step 7 (fixed-point):
// a[h1:l1][h2:l2] reduces to a[l1+h2 : l1+l2]. Precondition
// h2-l2+1 <= h1-l1+1 ∧ h2 < h1-l1+1; violations are fatal.
type NestedBitSliceFlatten struct{}

func (*NestedBitSliceFlatten) Name() string { return "nested-bit-slice-flatten" }

func (*NestedBitSliceFlatten) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		matches := a.Find(func(n ast.Node) bool {
			outer, ok := n.(*ast.BitSlice)
			if !ok {
				return false
			}
			_, innerIsSlice := a.Get(outer.Target).(*ast.BitSlice)
			return innerIsSlice
		})
		if len(matches) == 0 {
			return nil
		}
		for _, m := range matches {
			outer := a.Get(m.ID).(*ast.BitSlice)
			inner := a.Get(outer.Target).(*ast.BitSlice)
			h1, l1 := inner.Hi, inner.Lo
			h2, l2 := outer.Hi, outer.Lo
			if h2-l2+1 > h1-l1+1 || h2 >= h1-l1+1 {
				return diag.Errorf(diag.KindInternal,
					"nested bit-slice flatten precondition violated: outer=[%d:%d] inner=[%d:%d]", h2, l2, h1, l1).
					WithNode(ast.Sprint(a, m.ID))
			}
			flat := a.NewBitSlice(inner.Target, l1+h2, l1+l2)
			a.ReplaceChild(m.Parent, m.ID, flat)
			ctx.recordProvenance(flat, m.ID)
		}
	}
}
