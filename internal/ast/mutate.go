package ast

// setID and setParent are the only code in the package allowed to write
// base.id / base.parent directly; everything else goes through the arena's
// constructors or ReplaceChild.

func setID(n Node, id NodeID) {
	baseOf(n).id = id
}

func setParent(n Node, parent NodeID) {
	baseOf(n).parent = parent
}

// baseOf returns the embedded *base for any concrete node type. Implemented
// as a type switch (per design note: "model as a data-type-dispatch
// function ... avoid open inheritance hierarchies") rather than reflection.
func baseOf(n Node) *base {
	switch v := n.(type) {
	case *NameRef:
		return &v.base
	case *VarRef:
		return &v.base
	case *FieldAccess:
		return &v.base
	case *ArrIndex:
		return &v.base
	case *BitSlice:
		return &v.base
	case *Cast:
		return &v.base
	case *UnaryExpr:
		return &v.base
	case *BinaryExpr:
		return &v.base
	case *IntLiteral:
		return &v.base
	case *LongIntLiteral:
		return &v.base
	case *BuiltinCall:
		return &v.base
	case *Assign:
		return &v.base
	case *If:
		return &v.base
	case *IfElse:
		return &v.base
	case *Block:
		return &v.base
	case *ExprEval:
		return &v.base
	case *Return:
		return &v.base
	case *Nop:
		return &v.base
	case *Module:
		return &v.base
	case *TypeAnnotation:
		return &v.base
	case *FakeVarDef:
		return &v.base
	default:
		panic("ast: unhandled node type in baseOf")
	}
}

// Parent returns n's current parent node id.
func Parent(n Node) NodeID { return baseOf(n).parent }

// ID returns n's arena slot.
func ID(n Node) NodeID { return baseOf(n).id }

// replaceChildField rewrites whichever field of parent currently holds old
// so that it holds newChild instead. Returns false if parent has no such
// child field pointing at old.
func replaceChildField(parent Node, old, newChild NodeID) bool {
	switch p := parent.(type) {
	case *FieldAccess:
		if p.Source == old {
			p.Source = newChild
			return true
		}
	case *ArrIndex:
		if p.Source == old {
			p.Source = newChild
			return true
		}
		if p.Index == old {
			p.Index = newChild
			return true
		}
	case *BitSlice:
		if p.Target == old {
			p.Target = newChild
			return true
		}
	case *Cast:
		if p.Expr == old {
			p.Expr = newChild
			return true
		}
	case *UnaryExpr:
		if p.Expr == old {
			p.Expr = newChild
			return true
		}
	case *BinaryExpr:
		if p.Lhs == old {
			p.Lhs = newChild
			return true
		}
		if p.Rhs == old {
			p.Rhs = newChild
			return true
		}
	case *BuiltinCall:
		for i, a := range p.Args {
			if a == old {
				p.Args[i] = newChild
				return true
			}
		}
	case *Assign:
		if p.Lvalue == old {
			p.Lvalue = newChild
			return true
		}
		if p.Rhs == old {
			p.Rhs = newChild
			return true
		}
	case *If:
		if p.Cond == old {
			p.Cond = newChild
			return true
		}
		if p.Then == old {
			p.Then = newChild
			return true
		}
	case *IfElse:
		if p.Cond == old {
			p.Cond = newChild
			return true
		}
		if p.Then == old {
			p.Then = newChild
			return true
		}
		if p.Else == old {
			p.Else = newChild
			return true
		}
	case *Block:
		for i, s := range p.Stmts {
			if s == old {
				p.Stmts[i] = newChild
				return true
			}
		}
	case *ExprEval:
		if p.Expr == old {
			p.Expr = newChild
			return true
		}
	case *Module:
		if p.Body == old {
			p.Body = newChild
			return true
		}
	}
	return false
}

// SpliceBlock replaces the statement at index i of block with the given
// replacement statements, re-parenting each to block. Used by the
// useless-block-unrolling pass. This is a bulk convenience built on top of
// the same invariant ReplaceChild maintains (every spliced-in node's parent
// is set to block), not a second mutation primitive.
func (a *Arena) SpliceBlock(blockID NodeID, i int, replacement []NodeID) {
	blk := a.Get(blockID).(*Block)
	out := make([]NodeID, 0, len(blk.Stmts)-1+len(replacement))
	out = append(out, blk.Stmts[:i]...)
	out = append(out, replacement...)
	out = append(out, blk.Stmts[i+1:]...)
	blk.Stmts = out
	for _, s := range replacement {
		setParent(a.Get(s), blockID)
	}
}
