package lower

import "github.com/hlsc-project/hlsc/internal/ast"

// NameReferenceElimination implements §4.1 step 4: every remaining NameRef
// becomes a VarRef pointing to a deduplicated FakeVarDef. Missing
// width/globality is defaulted to (32, global) with a diagnostic.
type NameReferenceElimination struct{}

func (*NameReferenceElimination) Name() string { return "name-reference-elimination" }

func (*NameReferenceElimination) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		matches := a.Find(func(n ast.Node) bool {
			_, ok := n.(*ast.NameRef)
			return ok
		})
		if len(matches) == 0 {
			return nil
		}
		for _, m := range matches {
			nr := a.Get(m.ID).(*ast.NameRef)
			def, existed := ctx.varDefs[nr.Name]
			if !existed {
				if ctx.Reporter != nil {
					ctx.Reporter.Warning(nr.Name, "missing width/globality annotation for %q, defaulting to (32, global)", nr.Name)
				}
				def = a.NewFakeVarDef(nr.Name, 32, true, true)
				ctx.varDefs[nr.Name] = def
			}
			ref := a.NewVarRef(def)
			a.ReplaceChild(m.Parent, m.ID, ref)
			ctx.recordProvenance(ref, m.ID)
		}
	}
}

// DeclareVar registers a known variable declaration (name, width,
// globality) ahead of lowering, so NameReferenceElimination resolves
// references to it without defaulting. The frontend calls this for every
// variable the source program declares explicitly.
func (c *Context) DeclareVar(name string, width int, isGlobal bool) ast.NodeID {
	if id, ok := c.varDefs[name]; ok {
		return id
	}
	id := c.Arena.NewFakeVarDef(name, width, width > 0, isGlobal)
	c.varDefs[name] = id
	return id
}
