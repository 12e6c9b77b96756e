package lower

import (
	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/diag"
)

// FieldAccessElimination implements §4.1 step 1: every FieldAccess node
// annotated with (struct_var, offset, size) — however deep in a chain like
// a.b.c.d it sits — is rewritten directly to a bit-slice of a fresh name
// reference to struct_var, not to a slice of its own (possibly still a
// FieldAccess, still un-eliminated) Source. That name reference becomes a
// VarRef by name-reference elimination (step 4), which runs after this
// pass; the two steps compose to produce exactly the
// VarRef(struct_var)[offset+size-1:offset] shape spec §4.1 describes, and a
// multi-level chain collapses to one flat slice per level rather than a
// nested slice-of-slice-of-source chain, since every level's annotation
// already names the same ultimate struct_var.
type FieldAccessElimination struct{}

func (*FieldAccessElimination) Name() string { return "field-access-elimination" }

func (*FieldAccessElimination) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		matches := a.Find(func(n ast.Node) bool {
			_, ok := n.(*ast.FieldAccess)
			return ok
		})
		if len(matches) == 0 {
			return nil
		}
		for _, m := range matches {
			fa := a.Get(m.ID).(*ast.FieldAccess)
			if fa.StructVar == "" {
				return diag.Errorf(diag.KindInternal,
					"field access has no (struct_var, offset, size) annotation, cannot flatten").
					WithNode(ast.Sprint(a, m.ID))
			}
			hi := fa.Offset + fa.Size - 1
			lo := fa.Offset
			ref := a.NewNameRef(fa.StructVar)
			sliced := a.NewBitSlice(ref, hi, lo)
			a.ReplaceChild(m.Parent, m.ID, sliced)
			ctx.recordProvenance(sliced, m.ID)
		}
	}
}
