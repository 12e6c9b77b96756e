package lower

import (
	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/diag"
)

// Verifier asserts, after the seven rewrites, that every invariant §4.1
// and §8 require holds: no eliminated kinds remain, no nested slices
// remain, and every FakeVarDef's width is resolved.
type Verifier struct{}

func (*Verifier) Name() string { return "verify" }

func (*Verifier) Run(ctx *Context) error {
	a := ctx.Arena
	var bad []ast.NodeID
	a.WalkModule(func(_, id ast.NodeID) {
		switch n := a.Get(id).(type) {
		case *ast.FieldAccess, *ast.ArrIndex, *ast.NameRef:
			bad = append(bad, id)
		case *ast.BitSlice:
			if _, innerIsSlice := a.Get(n.Target).(*ast.BitSlice); innerIsSlice {
				bad = append(bad, id)
			}
		case *ast.BuiltinCall:
			if n.Name == "_valid" || n.Name == "_valid_set" {
				bad = append(bad, id)
			}
		case *ast.VarRef:
			def := a.Get(n.Def).(*ast.FakeVarDef)
			if def.Width <= 0 {
				bad = append(bad, id)
			}
		}
	})
	if len(bad) > 0 {
		return diag.Errorf(diag.KindInternal, "lowering verifier failed: %d offending node(s), first: %s",
			len(bad), ast.Sprint(a, bad[0])).WithNode(ast.Sprint(a, bad[0]))
	}
	return nil
}
