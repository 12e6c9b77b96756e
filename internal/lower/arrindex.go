package lower

import (
	"fmt"

	"github.com/hlsc-project/hlsc/internal/ast"
)

// ArrayIndexElimination implements §4.1 step 2: arr[k] becomes a fresh
// NameRef named arr<delim>k; distinct constant indices produce distinct
// variables. The new NameRef carries no width: the width of arr is not
// copied to it, and name-reference elimination later resolves it like any
// other name.
type ArrayIndexElimination struct{}

const arrIndexDelim = "__"

func (*ArrayIndexElimination) Name() string { return "array-index-elimination" }

func (*ArrayIndexElimination) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		matches := a.Find(func(n ast.Node) bool {
			_, ok := n.(*ast.ArrIndex)
			return ok
		})
		if len(matches) == 0 {
			return nil
		}
		for _, m := range matches {
			idx := a.Get(m.ID).(*ast.ArrIndex)
			base := arrayBaseName(a, idx.Source)
			key, ok := constantIndexValue(a, idx.Index)
			var name string
			if ok {
				name = fmt.Sprintf("%s%s%d", base, arrIndexDelim, key)
			} else {
				// A non-constant index has no single flattened home; fall
				// back to a stable per-node name so distinct dynamic
				// accesses still get distinct variables.
				name = fmt.Sprintf("%s%sdyn%d", base, arrIndexDelim, idx.Index)
			}
			ref := a.NewNameRef(name)
			a.ReplaceChild(m.Parent, m.ID, ref)
			ctx.recordProvenance(ref, m.ID)
		}
	}
}

func arrayBaseName(a *ast.Arena, source ast.NodeID) string {
	switch v := a.Get(source).(type) {
	case *ast.NameRef:
		return v.Name
	case *ast.VarRef:
		return fmt.Sprintf("v%d", v.Def)
	default:
		return fmt.Sprintf("arr%d", source)
	}
}

func constantIndexValue(a *ast.Arena, id ast.NodeID) (uint64, bool) {
	if lit, ok := a.Get(id).(*ast.IntLiteral); ok {
		return lit.Value, true
	}
	return 0, false
}
