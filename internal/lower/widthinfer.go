package lower

import "github.com/hlsc-project/hlsc/internal/ast"

// WidthInference implements §4.1's variable-width-inference walk: tightens
// each FakeVarDef's width from max(current, usage). A top-level bit-slice
// a[h:l] forces width(a) >= h+1; an assignment a = LongIntLiteral forces
// width(a) >= 64*len(words). Widening only: a usage that needs fewer bits
// than the current width leaves the width unchanged, and no warning is
// emitted for it. Modeled on the teacher's fixed-point propagation pass
// (internal/passes/widthinfer.go), generalized from hardware Signal widths
// to FakeVarDef widths.
type WidthInference struct{}

const maxWidthInferIterations = 32

func (*WidthInference) Name() string { return "width-inference" }

func (w *WidthInference) Run(ctx *Context) error {
	a := ctx.Arena
	for iter := 0; iter < maxWidthInferIterations; iter++ {
		changed := false
		a.WalkModule(func(_, id ast.NodeID) {
			switch n := a.Get(id).(type) {
			case *ast.BitSlice:
				if vr, ok := a.Get(n.Target).(*ast.VarRef); ok {
					if w.widen(ctx, vr.Def, n.Hi+1) {
						changed = true
					}
				}
			case *ast.Assign:
				lv, ok := a.Get(n.Lvalue).(*ast.VarRef)
				if !ok {
					return
				}
				if lit, ok := a.Get(n.Rhs).(*ast.LongIntLiteral); ok {
					if w.widen(ctx, lv.Def, 64*len(lit.Words)) {
						changed = true
					}
				}
			}
		})
		if !changed {
			return nil
		}
	}
	return nil
}

func (*WidthInference) widen(ctx *Context, defID ast.NodeID, want int) bool {
	def := ctx.Arena.Get(defID).(*ast.FakeVarDef)
	if want <= def.Width {
		return false
	}
	def.Width = want
	def.WidthKnown = true
	return true
}
