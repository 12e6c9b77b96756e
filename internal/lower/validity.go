package lower

import "github.com/hlsc-project/hlsc/internal/ast"

// ValidityIntrinsics implements §4.1 step 3: _valid_set(x, v) rewrites to
// x_valid = v; _valid(x) rewrites to reference x_valid (a 1-bit variable).
// Globality of the valid bit is inherited from the source variable.
type ValidityIntrinsics struct{}

const validSuffix = "_valid"

func (*ValidityIntrinsics) Name() string { return "validity-intrinsics" }

func (*ValidityIntrinsics) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		matches := a.Find(func(n ast.Node) bool {
			bc, ok := n.(*ast.BuiltinCall)
			return ok && (bc.Name == "_valid" || bc.Name == "_valid_set")
		})
		if len(matches) == 0 {
			return nil
		}
		for _, m := range matches {
			bc := a.Get(m.ID).(*ast.BuiltinCall)
			switch bc.Name {
			case "_valid":
				validName := validBitName(a, bc.Args[0])
				ref := a.NewNameRef(validName)
				a.ReplaceChild(m.Parent, m.ID, ref)
				ctx.recordProvenance(ref, m.ID)
			case "_valid_set":
				validName := validBitName(a, bc.Args[0])
				lv := a.NewNameRef(validName)
				assign := a.NewAssign(lv, bc.Args[1])
				// _valid_set is only ever used as a statement, wrapped in
				// an ExprEval; the rewrite replaces that wrapper itself
				// (a statement) with the Assign in the enclosing block,
				// not the BuiltinCall expression within it.
				wrapper := m.Parent
				block := a.ParentOf(wrapper)
				a.ReplaceChild(block, wrapper, assign)
				ctx.recordProvenance(assign, m.ID)
			}
		}
	}
}

func validBitName(a *ast.Arena, source ast.NodeID) string {
	switch v := a.Get(source).(type) {
	case *ast.NameRef:
		return v.Name + validSuffix
	case *ast.VarRef:
		def := a.Get(v.Def).(*ast.FakeVarDef)
		return def.Name + validSuffix
	default:
		return "anon" + validSuffix
	}
}
